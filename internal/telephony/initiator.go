package telephony

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode"

	"github.com/gasguard/gasguard/internal/state"
)

// ErrInvalidTarget is returned when the destination number is empty or
// malformed. It is reported to the caller of the alert trigger as a
// structured failure; nothing is dispatched.
var ErrInvalidTarget = errors.New("telephony: invalid target number")

// statusEvents is the set of delivery outcomes we subscribe to on every call.
var statusEvents = []string{"completed", "busy", "no-answer", "failed", "canceled"}

// CallContext carries the call-setup parameters that must survive the
// provider's answer/redirect hop. They are encoded into the redirect URL so
// the inbound-call handler can recover them without a shared side-channel.
type CallContext struct {
	CustomerName string
	Language     string
	Reading      string // sensor value at trigger time, as pushed
}

// Initiator places outbound alert calls and records each attempt in the
// state store. It does not retry: retry policy lives entirely in the alert
// gate's cooldown.
type Initiator struct {
	client     *Client
	store      *state.Store
	publicHost string
	logger     *slog.Logger
}

// NewInitiator creates an initiator. publicHost is this server's publicly
// reachable hostname, used to build the answer-redirect and status-callback
// URLs handed to the provider.
func NewInitiator(client *Client, store *state.Store, publicHost string, logger *slog.Logger) *Initiator {
	return &Initiator{
		client:     client,
		store:      store,
		publicHost: publicHost,
		logger:     logger.With("subsystem", "call-initiator"),
	}
}

// Initiate places a call to target. On answer the provider re-enters this
// system's inbound-call handler with cc attached. Returns the provider call
// SID on success.
//
// The store slot is claimed before dispatch so a racing trigger is denied
// with call_in_progress; on provider rejection the slot is released again
// (the attempt timestamp stays, so the retry cooldown covers the failure).
func (i *Initiator) Initiate(ctx context.Context, target string, cc CallContext) (string, error) {
	if !validTarget(target) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTarget, target)
	}

	redirect := fmt.Sprintf("https://%s/twilio/inbound-call?CustomerName=%s&Language=%s&Reading=%s",
		i.publicHost,
		url.QueryEscape(cc.CustomerName),
		url.QueryEscape(cc.Language),
		url.QueryEscape(cc.Reading),
	)
	twiml := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?><Response><Redirect method="POST">%s</Redirect></Response>`,
		xmlEscape(redirect))
	statusCallback := fmt.Sprintf("https://%s/twilio/call-status", i.publicHost)

	i.store.RecordAttempt()

	sid, err := i.client.CreateCall(ctx, target, twiml, statusCallback, statusEvents)
	if err != nil {
		i.store.RecordDispatchFailure()
		i.logger.Error("outbound call dispatch failed", "target", target, "error", err)
		return "", err
	}

	i.logger.Info("outbound call initiated",
		"call_sid", sid,
		"target", target,
		"customer", cc.CustomerName,
		"language", cc.Language,
	)
	return sid, nil
}

// validTarget accepts E.164-ish numbers: an optional leading +, then digits.
func validTarget(target string) bool {
	s := strings.TrimPrefix(target, "+")
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// xmlEscape escapes the characters that matter inside TwiML text content.
func xmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
