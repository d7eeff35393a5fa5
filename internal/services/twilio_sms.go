package services

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// TwilioSMSService implements SMSService against the Twilio API.
type TwilioSMSService struct {
	client      *twilio.RestClient
	fromNumber  string
	rateLimiter *SMSRateLimiter
}

func NewTwilioSMSService(accountSID, authToken, fromNumber string, rateLimiter *SMSRateLimiter) *TwilioSMSService {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSMSService{
		client:      client,
		fromNumber:  fromNumber,
		rateLimiter: rateLimiter,
	}
}

func (s *TwilioSMSService) SendMessage(phoneNumber, message string) error {
	if s.rateLimiter != nil {
		if err := s.rateLimiter.Allow(phoneNumber); err != nil {
			return err
		}
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(phoneNumber)
	params.SetFrom(s.fromNumber)
	params.SetBody(message)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send SMS to %s: %w", phoneNumber, err)
	}

	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	logrus.WithFields(logrus.Fields{
		"to":  phoneNumber,
		"sid": sid,
	}).Info("SMS sent")
	return nil
}
