package service

import (
	"context"
	"errors"
	"strings"

	"github.com/anmicius0/unit-batch-station/internal/batch"
	"github.com/anmicius0/unit-batch-station/internal/client"
	"github.com/anmicius0/unit-batch-station/internal/journal"
	"github.com/anmicius0/unit-batch-station/internal/notify"
	"github.com/anmicius0/unit-batch-station/internal/utils"
	"go.uber.org/zap"
)

// submission describes one submit call of a workflow.
type submission struct {
	operation      string
	reference      string
	items          []batch.Item
	send           func(ctx context.Context) (*client.RuleResponse, error)
	successMessage string
	failureMessage string
	// redirect is used on success when the response carries no next link.
	redirect  string
	onSuccess func()
}

// submit sends sub and turns the response into an outcome.
// Transport failures keep the accumulator for a manual retry.
func (s *station) submit(ctx context.Context, sub submission) (Outcome, error) {
	if err := s.to(PhaseSubmitting); err != nil {
		return Outcome{}, err
	}
	s.log.Info("Submitting",
		zap.String(utils.FieldOperation, sub.operation),
		zap.String("reference", sub.reference),
		zap.Int("items", len(sub.items)))

	resp, err := sub.send(ctx)
	if err != nil {
		return s.submitFailed(ctx, sub, err)
	}
	return s.settle(ctx, sub, resp)
}

func (s *station) submitFailed(ctx context.Context, sub submission, err error) (Outcome, error) {
	s.log.Error("Submission failed", zap.String(utils.FieldOperation, sub.operation), zap.Error(err))
	s.record(ctx, sub, journal.ResultTransportError, err.Error())
	if err := s.to(PhaseScanning); err != nil {
		return Outcome{}, err
	}
	return toast(notify.Error(failureText(err, sub.failureMessage)), ""), nil
}

// failureText prefers the message the backend attached to err over fallback.
func failureText(err error, fallback string) string {
	var gqlErr *client.GraphQLError
	if errors.As(err, &gqlErr) {
		if msg := strings.TrimSpace(strings.Join(gqlErr.Messages, "; ")); msg != "" {
			return msg
		}
	}
	var httpErr *client.HTTPError
	if errors.As(err, &httpErr) {
		if body := strings.TrimSpace(httpErr.Body); body != "" {
			return body
		}
	}
	return fallback
}

// settle applies a rule response. A CONFIRMATION notification parks the workflow and defers
// navigation; accepting it follows the confirm link and settles that response in turn.
// A response carrying ERROR or SYSTEM notifications never navigates.
func (s *station) settle(ctx context.Context, sub submission, resp *client.RuleResponse) (Outcome, error) {
	out, confirmation := splitNotifications(resp.Notifications)
	next := resp.Link(client.LinkNext)
	blocked := notify.Has(resp.Notifications, notify.TypeError, notify.TypeSystem)
	if blocked {
		next = ""
	}

	if confirmation != nil {
		s.record(ctx, sub, journal.ResultConfirmationRequested, confirmation.Message)
		confirmLink := resp.Link(client.LinkConfirm)
		asked, err := s.ask(confirmationFrom(*confirmation), PhaseScanning,
			func(ctx context.Context) (Outcome, error) {
				if confirmLink == "" || s.deps.Links == nil {
					return Outcome{Redirect: next}, nil
				}
				if err := s.to(PhaseSubmitting); err != nil {
					return Outcome{}, err
				}
				followed, err := s.deps.Links.Follow(ctx, confirmLink)
				if err != nil {
					return s.submitFailed(ctx, sub, err)
				}
				return s.settle(ctx, sub, followed)
			}, nil)
		if err != nil {
			return Outcome{}, err
		}
		out.merge(asked)
		return out, nil
	}

	if resp.OK() {
		if !notify.Has(resp.Notifications, notify.TypeSuccess) && sub.successMessage != "" {
			out.add(notify.Success(sub.successMessage))
		}
		s.record(ctx, sub, journal.ResultSuccess, resp.Message(notify.TypeSuccess))
		s.log.Info("Submission accepted", zap.String(utils.FieldOperation, sub.operation))
		if sub.onSuccess != nil {
			sub.onSuccess()
		}
		if err := s.to(PhaseDone); err != nil {
			return Outcome{}, err
		}
		out.Redirect = next
		if out.Redirect == "" && !blocked {
			out.Redirect = sub.redirect
		}
		return out, nil
	}

	if len(out.Presentations) == 0 {
		out.add(notify.Error(sub.failureMessage))
	}
	message, _ := out.Failed()
	s.record(ctx, sub, journal.ResultRejected, message)
	s.log.Warn("Submission rejected",
		zap.String(utils.FieldOperation, sub.operation),
		zap.String("rule_code", resp.RuleCode),
		zap.String("message", message))
	if err := s.to(PhaseScanning); err != nil {
		return Outcome{}, err
	}
	out.Redirect = next
	return out, nil
}

// splitNotifications presents every notification except the first CONFIRMATION, which is returned.
func splitNotifications(ns []notify.Notification) (Outcome, *notify.Notification) {
	var out Outcome
	var confirmation *notify.Notification
	for _, n := range ns {
		if n.NormalizedType() == notify.TypeConfirmation && confirmation == nil {
			c := n
			confirmation = &c
			continue
		}
		out.add(notify.Present(n))
	}
	return out, confirmation
}

func confirmationFrom(n notify.Notification) Confirmation {
	title := n.Name
	if title == "" {
		title = TitleConfirmation
	}
	return Confirmation{Title: title, Message: n.Message, Details: append([]string(nil), n.Details...)}
}

func (s *station) record(ctx context.Context, sub submission, result journal.Result, message string) {
	lines := make([]journal.Line, 0, len(sub.items))
	for _, item := range sub.items {
		lines = append(lines, journal.Line{
			UnitNumber:  item.UnitNumber,
			ProductCode: item.ProductCode,
			Status:      strings.Join(item.Statuses, ","),
		})
	}
	err := s.deps.Recorder.Record(ctx, journal.Entry{
		SessionID: s.deps.SessionID,
		Workflow:  string(s.kind),
		Operation: sub.operation,
		Reference: sub.reference,
		Lines:     lines,
		Result:    result,
		Message:   message,
		CreatedAt: s.deps.Now(),
	})
	if err != nil {
		s.log.Warn("Could not journal submission", zap.String(utils.FieldOperation, sub.operation), zap.Error(err))
	}
}
