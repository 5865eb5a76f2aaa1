package v1

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"nanohub/internal/server/api/response"
	"nanohub/internal/server/service"
	"nanohub/internal/types"
	"nanohub/internal/validator"
	"nanohub/internal/webhook"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// requestTimeout bounds handlers that wait on device responses
const requestTimeout = 120 * time.Second

// API represents the API
type API struct {
	service   *service.Service
	validator *validator.Validator
	logger    *zap.Logger
}

// NewAPI creates new API
func NewAPI(svc *service.Service, logger *zap.Logger) *API {
	return &API{
		service:   svc,
		validator: validator.New(),
		logger:    logger,
	}
}

// RegisterRoutes registers API routes
func (api *API) RegisterRoutes(r *gin.RouterGroup) {
	// Device endpoints
	devices := r.Group("/devices")
	{
		devices.POST("/:udid/push", api.pushDevice)
		devices.POST("/:udid/commands", api.sendCommand)
		devices.GET("/:udid/info", api.getDeviceInfo)
		devices.GET("/:udid/security", api.getSecurityInfo)
		devices.GET("/:udid/profiles", api.getProfiles)
		devices.GET("/:udid/apps", api.getApplications)
		devices.GET("/:udid/history", api.getHistory)
	}

	// Script dispatch endpoints
	commands := r.Group("/commands")
	{
		commands.POST("/run", api.runCommand)
		commands.POST("/bulk", api.runBulk)
	}

	// Health check
	r.GET("/health", api.healthCheck)
}

// deviceParam extracts and validates the udid path parameter
func (api *API) deviceParam(c *gin.Context, resp *response.Handler) (string, bool) {
	udid := c.Param("udid")
	if udid == "" {
		resp.BadRequest(errors.New("udid is required"))
		return "", false
	}
	if err := api.validator.Var(udid, "udid"); err != nil {
		resp.ValidationError(errors.New("invalid udid format"))
		return "", false
	}
	return udid, true
}

// pushDevice handles bare APNs wakeup requests
func (api *API) pushDevice(c *gin.Context) {
	resp := response.New(c, api.logger)

	udid, ok := api.deviceParam(c, resp)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	if !api.service.PushDevice(ctx, udid) {
		resp.Error(http.StatusBadGateway, errors.New("push failed"))
		return
	}

	resp.Success(gin.H{"status": "pushed"})
}

// sendCommand handles MDM command dispatch to one device
func (api *API) sendCommand(c *gin.Context) {
	resp := response.New(c, api.logger)

	udid, ok := api.deviceParam(c, resp)
	if !ok {
		return
	}

	var req struct {
		RequestType string `json:"request_type" binding:"required"`
		Profile     string `json:"profile"` // base64, InstallProfile only
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(errors.New("invalid command format"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	var (
		outcome *service.CommandOutcome
		err     error
	)

	switch requestType := types.RequestType(req.RequestType); requestType {
	case types.RequestInstallProfile:
		if req.Profile == "" {
			resp.BadRequest(errors.New("profile payload is required"))
			return
		}
		profile, decodeErr := base64.StdEncoding.DecodeString(req.Profile)
		if decodeErr != nil {
			resp.BadRequest(errors.New("profile payload must be base64"))
			return
		}
		outcome, err = api.service.InstallProfile(ctx, udid, profile)

	case types.RequestDeviceLock, types.RequestRestartDevice,
		types.RequestDeviceInformation, types.RequestSecurityInfo,
		types.RequestProfileList, types.RequestApplicationList,
		types.RequestCertificateList:
		outcome, err = api.service.SendCommand(ctx, udid, requestType)

	default:
		resp.BadRequest(fmt.Errorf("unsupported request type: %s", req.RequestType))
		return
	}

	if err != nil {
		api.logger.Error("Failed to dispatch command",
			zap.Error(err),
			zap.String("udid", udid),
			zap.String("request_type", req.RequestType))
		resp.InternalError(errors.New("failed to dispatch command"))
		return
	}

	if !outcome.Result.Success {
		resp.Error(http.StatusBadGateway, errors.New(outcome.Result.Error))
		return
	}

	// Dispatched but no device answer within the poll budget.
	if outcome.Response == nil {
		resp.Accepted(outcome)
		return
	}

	resp.Success(outcome)
}

// queryDevice runs one device query flow for an inventory handler
func (api *API) queryDevice(c *gin.Context, resp *response.Handler, query types.QueryType) *types.PollResponse {
	udid, ok := api.deviceParam(c, resp)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	result, err := api.service.QueryDevice(ctx, udid, query)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			api.logger.Info("Client canceled device query",
				zap.String("udid", udid))
			return nil
		}

		api.logger.Error("Device query failed",
			zap.Error(err),
			zap.String("udid", udid),
			zap.String("query", string(query)))
		resp.InternalError(errors.New("device query failed"))
		return nil
	}

	if !result.Success {
		resp.Error(http.StatusGatewayTimeout, errors.New(result.Error))
		return nil
	}

	return result
}

// getDeviceInfo handles DeviceInformation queries
func (api *API) getDeviceInfo(c *gin.Context) {
	resp := response.New(c, api.logger)

	result := api.queryDevice(c, resp, types.QueryHardware)
	if result == nil {
		return
	}

	resp.Success(gin.H{
		"udid": result.UDID,
		"info": webhook.ExtractDeviceInfo(result),
	})
}

// getSecurityInfo handles SecurityInfo queries
func (api *API) getSecurityInfo(c *gin.Context) {
	resp := response.New(c, api.logger)

	result := api.queryDevice(c, resp, types.QuerySecurity)
	if result == nil {
		return
	}

	resp.Success(gin.H{
		"udid":     result.UDID,
		"security": webhook.ExtractSecurityInfo(result),
	})
}

// getProfiles handles ProfileList queries
func (api *API) getProfiles(c *gin.Context) {
	resp := response.New(c, api.logger)

	result := api.queryDevice(c, resp, types.QueryProfiles)
	if result == nil {
		return
	}

	resp.Success(gin.H{
		"udid":     result.UDID,
		"profiles": webhook.ExtractProfiles(result.Raw),
	})
}

// getApplications handles InstalledApplicationList queries
func (api *API) getApplications(c *gin.Context) {
	resp := response.New(c, api.logger)

	result := api.queryDevice(c, resp, types.QueryApps)
	if result == nil {
		return
	}

	resp.Success(gin.H{
		"udid": result.UDID,
		"apps": webhook.ExtractApplications(result.Raw),
	})
}

// getHistory handles audit trail lookups
func (api *API) getHistory(c *gin.Context) {
	resp := response.New(c, api.logger)

	udid, ok := api.deviceParam(c, resp)
	if !ok {
		return
	}

	var query struct {
		Limit int `form:"limit"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		resp.BadRequest(errors.New("invalid query parameters"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	records, err := api.service.GetDeviceHistory(ctx, udid, query.Limit)
	if err != nil {
		api.logger.Error("Failed to get device history",
			zap.Error(err),
			zap.String("udid", udid))
		resp.InternalError(errors.New("failed to get device history"))
		return
	}

	resp.Success(gin.H{
		"udid":     udid,
		"commands": records,
	})
}

// runCommand handles single script dispatch
func (api *API) runCommand(c *gin.Context) {
	resp := response.New(c, api.logger)

	var req struct {
		Script         string   `json:"script" binding:"required"`
		Args           []string `json:"args"`
		TimeoutSeconds int      `json:"timeout_seconds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(errors.New("script is required"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	result := api.service.RunCommand(ctx, req.Script, req.Args,
		time.Duration(req.TimeoutSeconds)*time.Second)

	resp.Success(result)
}

// runBulk handles script dispatch across many devices
func (api *API) runBulk(c *gin.Context) {
	resp := response.New(c, api.logger)

	var req struct {
		Script  string   `json:"script" binding:"required"`
		Devices []string `json:"devices" binding:"required,min=1"`
		Args    []string `json:"args"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.BadRequest(errors.New("script and devices are required"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Minute)
	defer cancel()

	results := api.service.RunBulk(ctx, req.Script, req.Devices, req.Args)

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}

	resp.Success(gin.H{
		"total":     len(results),
		"succeeded": succeeded,
		"failed":    len(results) - succeeded,
		"results":   results,
	})
}

// healthCheck handles health check requests
func (api *API) healthCheck(c *gin.Context) {
	resp := response.New(c, api.logger)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := api.service.HealthCheck(ctx)
	if !status.Healthy {
		resp.Error(http.StatusServiceUnavailable, errors.New("service unhealthy"))
		return
	}

	resp.Success(status)
}
