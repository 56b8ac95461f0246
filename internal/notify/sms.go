package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/2003abishek/safetracker/internal/config"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

const defaultMessage = "Please share your location for safety reasons."

type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// SMS delivers shareable links through Twilio.
type SMS struct {
	api     messageCreator
	from    string
	baseURL string
}

// NewSMS returns a Twilio-backed dispatcher, or a disabled one when the
// credentials are missing so session creation degrades to manual sharing.
func NewSMS(cfg config.Config) Dispatcher {
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" {
		return Disabled{BaseURL: cfg.BaseURL}
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioAccountSID,
		Password: cfg.TwilioAuthToken,
	})
	return &SMS{api: client.Api, from: cfg.TwilioFromNumber, baseURL: cfg.BaseURL}
}

func (s *SMS) Send(_ context.Context, recipient, sessionID, message string) Result {
	link := ShareLink(s.baseURL, sessionID)
	if message == "" {
		message = defaultMessage
	}
	body := fmt.Sprintf("%s\n\nShare your location here: %s\n\nThis link will expire in 24 hours.", message, link)

	params := &openapi.CreateMessageParams{}
	params.SetTo(recipient)
	params.SetFrom(s.from)
	params.SetBody(body)

	msg, err := s.api.CreateMessage(params)
	if err != nil {
		log.Printf("sms dispatch to %s failed: %v", recipient, err)
		return Result{Err: err.Error(), Link: link}
	}

	var ref string
	if msg.Sid != nil {
		ref = *msg.Sid
	}
	return Result{Delivered: true, Reference: ref, Link: link}
}

// Disabled is the dispatcher used when no SMS channel is configured. Every
// send reports not-delivered with the fallback link.
type Disabled struct {
	BaseURL string
}

func (d Disabled) Send(_ context.Context, _, sessionID, _ string) Result {
	return Result{Err: "sms credentials not configured", Link: ShareLink(d.BaseURL, sessionID)}
}
