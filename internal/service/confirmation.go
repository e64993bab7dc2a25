package service

import (
	"context"

	"github.com/anmicius0/unit-batch-station/internal/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type resolution func(ctx context.Context) (Outcome, error)

// pending is a confirmation waiting for the operator together with what to do next.
type pending struct {
	Confirmation
	resume   Phase
	onAccept resolution
	onCancel resolution
}

// ask parks the workflow in the confirming phase until Resolve is called with the returned token.
// resume is the phase the workflow returns to before the chosen resolution runs.
func (s *station) ask(c Confirmation, resume Phase, onAccept, onCancel resolution) (Outcome, error) {
	if err := s.to(PhaseConfirming); err != nil {
		return Outcome{}, err
	}
	c.Token = uuid.NewString()
	if c.Title == "" {
		c.Title = TitleConfirmation
	}
	s.pending = &pending{Confirmation: c, resume: resume, onAccept: onAccept, onCancel: onCancel}
	s.log.Info("Confirmation requested", zap.String(utils.FieldToken, c.Token), zap.String("message", c.Message))

	out := c
	return Outcome{Confirmation: &out}, nil
}

// acknowledge asks a single-button question; redirect is issued once it is dismissed.
func (s *station) acknowledge(message string, details []string, resume Phase, redirect string) (Outcome, error) {
	return s.ask(Confirmation{Title: TitleAcknowledgment, Message: message, Details: details, Acknowledgment: true}, resume,
		func(context.Context) (Outcome, error) {
			return Outcome{Redirect: redirect}, nil
		}, nil)
}

// Resolve answers the pending confirmation identified by token.
func (s *station) Resolve(ctx context.Context, token string, accepted bool) (Outcome, error) {
	if s.pending == nil || s.pending.Token != token {
		return Outcome{}, ErrUnknownConfirmation
	}
	p := s.pending
	s.pending = nil
	if err := s.to(p.resume); err != nil {
		return Outcome{}, err
	}
	s.log.Info("Confirmation resolved", zap.String(utils.FieldToken, token), zap.Bool("accepted", accepted))

	next := p.onCancel
	if accepted || p.Acknowledgment {
		next = p.onAccept
	}
	if next == nil {
		return Outcome{}, nil
	}
	return next(ctx)
}
