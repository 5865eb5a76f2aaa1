package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"nanohub/internal/events"
	"nanohub/internal/mdm"
	"nanohub/internal/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CommandOutcome pairs the synchronous dispatch result with the
// asynchronous device response, when one arrived in time
type CommandOutcome struct {
	Result   types.CommandResult `json:"result"`
	Response *types.PollResponse `json:"response,omitempty"`
}

// QueryDevice runs a device query end to end: cache lookup, MDM
// dispatch with push, webhook polling with re-sends, audit completion
// and event publishing. Only successful responses are cached.
func (s *Service) QueryDevice(ctx context.Context, udid string, query types.QueryType) (*types.PollResponse, error) {
	key := fmt.Sprintf("query:%s:%s", query, udid)

	if data, err := s.cache.Get(ctx, key); err == nil {
		var resp types.PollResponse
		if err := json.Unmarshal(data, &resp); err == nil {
			s.logger.Debug("Query served from cache",
				zap.String("udid", udid),
				zap.String("query", string(query)))
			return &resp, nil
		}
		_ = s.cache.Invalidate(ctx, key)
	}

	resp, err := s.poller.QueryDevice(ctx, udid, query, s.sendQuery)
	if err != nil {
		return nil, err
	}

	s.completeAudit(ctx, resp)

	if resp != nil && resp.Success {
		if data, err := json.Marshal(resp); err == nil {
			if err := s.cache.Set(ctx, key, data, s.config.Cache.DefaultTTL); err != nil {
				s.logger.Warn("Failed to cache query response", zap.Error(err))
			}
		}
	}

	return resp, nil
}

// sendQuery dispatches one query command and records it in the audit
// trail before waking the device
func (s *Service) sendQuery(ctx context.Context, udid string, requestType types.RequestType, commandUUID string) error {
	var plist string
	if requestType == types.RequestDeviceInformation {
		plist = mdm.BuildDeviceInformationPlist(commandUUID, nil)
	} else {
		plist = mdm.BuildSimpleCommandPlist(commandUUID, requestType)
	}

	result := s.client.EnqueueCommand(ctx, udid, plist)
	if !result.Success {
		return errors.New(result.Error)
	}

	s.saveDispatched(ctx, commandUUID, udid, requestType)
	s.client.SendPush(ctx, udid)
	return nil
}

// SendCommand enqueues a parameterless MDM command, wakes the device
// and polls for its result
func (s *Service) SendCommand(ctx context.Context, udid string, requestType types.RequestType) (*CommandOutcome, error) {
	commandUUID := uuid.New().String()
	plist := mdm.BuildSimpleCommandPlist(commandUUID, requestType)
	return s.dispatch(ctx, udid, requestType, commandUUID, plist)
}

// InstallProfile enqueues an InstallProfile command carrying the given
// profile payload, wakes the device and polls for its result
func (s *Service) InstallProfile(ctx context.Context, udid string, profile []byte) (*CommandOutcome, error) {
	commandUUID := uuid.New().String()
	plist := mdm.BuildInstallProfilePlist(commandUUID, profile)
	return s.dispatch(ctx, udid, types.RequestInstallProfile, commandUUID, plist)
}

// dispatch runs the enqueue, push, poll, audit, publish pipeline for
// one command
func (s *Service) dispatch(ctx context.Context, udid string, requestType types.RequestType, commandUUID, plist string) (*CommandOutcome, error) {
	result := s.client.EnqueueCommand(ctx, udid, plist)
	if result.CommandUUID == "" {
		result.CommandUUID = commandUUID
	}

	outcome := &CommandOutcome{Result: result}
	if !result.Success {
		return outcome, nil
	}

	s.saveDispatched(ctx, commandUUID, udid, requestType)
	s.client.SendPush(ctx, udid)

	resp, err := s.poller.Poll(ctx, commandUUID, nil)
	if err != nil {
		s.logger.Warn("Result polling failed",
			zap.String("command_uuid", commandUUID),
			zap.Error(err))
		return outcome, nil
	}

	outcome.Response = resp
	s.completeAudit(ctx, resp)
	return outcome, nil
}

// saveDispatched records a freshly enqueued command
func (s *Service) saveDispatched(ctx context.Context, commandUUID, udid string, requestType types.RequestType) {
	err := s.storage.SaveCommand(ctx, &types.CommandRecord{
		CommandUUID:  commandUUID,
		Device:       udid,
		RequestType:  string(requestType),
		Status:       "Dispatched",
		DispatchedAt: time.Now(),
	})
	if err != nil {
		s.logger.Error("Failed to audit dispatched command",
			zap.String("command_uuid", commandUUID),
			zap.Error(err))
	}
}

// completeAudit stamps the audit record for a terminal response and
// publishes the completion event
func (s *Service) completeAudit(ctx context.Context, resp *types.PollResponse) {
	if resp == nil || resp.CommandUUID == "" || resp.Deferred {
		return
	}

	err := s.storage.CompleteCommand(ctx, resp.CommandUUID, resp.Status, resp.Success, resp.Error)
	if err != nil && !errors.Is(err, types.ErrCommandNotFound) {
		s.logger.Error("Failed to complete audit record",
			zap.String("command_uuid", resp.CommandUUID),
			zap.Error(err))
	}

	event := &events.Event{
		CommandUUID: resp.CommandUUID,
		Device:      resp.UDID,
		RequestType: resp.RequestType,
		Status:      resp.Status,
		Success:     resp.Success,
		Error:       resp.Error,
		Timestamp:   time.Now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish completion event",
			zap.String("command_uuid", resp.CommandUUID),
			zap.Error(err))
	}
}
