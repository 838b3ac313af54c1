package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ashureev/virtual-hr/internal/domain"
	"github.com/ashureev/virtual-hr/internal/feedback"
	"github.com/ashureev/virtual-hr/internal/leave"
	"github.com/ashureev/virtual-hr/internal/llm"
)

// Generator produces a completion for a system instruction and prompt.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// PolicyAnswerer answers a policy question.
type PolicyAnswerer interface {
	Answer(ctx context.Context, query string) (string, error)
}

const generalSystem = `You are a friendly HR assistant named Virtual HR.
You help employees with:
- Company policies and documentation
- Leave requests and balance
- Anonymous feedback submission

Be warm and helpful. If the user seems lost, briefly explain what you can help with.`

const generalFallback = "Hello! I'm Virtual HR. I can help you with company policies, " +
	"leave management, and collecting feedback. How can I assist you today?"

// Dispatcher maps a classified intent to its domain handler and converts
// every handler error into a user-facing string. It never fails a turn.
type Dispatcher struct {
	leave     *leave.Handler
	feedback  *feedback.Handler
	policy    PolicyAnswerer
	generator Generator
}

// NewDispatcher creates a dispatcher over the three domain handlers and the
// general-chat generator.
func NewDispatcher(leaveHandler *leave.Handler, feedbackHandler *feedback.Handler, policyHandler PolicyAnswerer, generator Generator) *Dispatcher {
	return &Dispatcher{
		leave:     leaveHandler,
		feedback:  feedbackHandler,
		policy:    policyHandler,
		generator: generator,
	}
}

// Execute routes the classification to exactly one handler. An intent outside
// the fixed set falls through to the general path.
func (d *Dispatcher) Execute(ctx context.Context, cls *llm.Classification, rawMessage string, caller CallerContext) string {
	switch cls.Intent {
	case llm.IntentPolicy:
		return d.executePolicy(ctx, cls.Params, rawMessage)
	case llm.IntentLeave:
		return d.executeLeave(ctx, cls.Params, caller)
	case llm.IntentFeedback:
		return d.executeFeedback(ctx, cls.Params, rawMessage, caller)
	case llm.IntentGeneral:
		return d.executeGeneral(ctx, rawMessage)
	default:
		slog.Warn("Classifier named an unroutable intent, using general path", "intent", cls.Intent)
		return d.executeGeneral(ctx, rawMessage)
	}
}

func (d *Dispatcher) executePolicy(ctx context.Context, params map[string]any, rawMessage string) string {
	query := stringParam(params, "query")
	if query == "" {
		query = rawMessage
	}

	answer, err := d.policy.Answer(ctx, query)
	if err != nil {
		return userMessage(err, "I'm having trouble accessing the policy documents right now. "+
			"Please try again later or contact HR directly.")
	}
	return answer
}

func (d *Dispatcher) executeLeave(ctx context.Context, params map[string]any, caller CallerContext) string {
	p := leave.Params{
		Action:       stringParam(params, "action"),
		EmployeeID:   stringParam(params, "employee_id"),
		EmployeeName: stringParam(params, "employee_name"),
		LeaveType:    stringParam(params, "leave_type"),
		StartDate:    stringParam(params, "start_date"),
		EndDate:      stringParam(params, "end_date"),
		NumDays:      intParam(params, "num_days"),
		Reason:       stringParam(params, "reason"),
		Status:       stringParam(params, "status"),
		Privileged:   caller.Privileged,
	}
	// Caller identity is authoritative: it derives from the session, while
	// extracted values are the model's guess at free text.
	if caller.EmployeeID != "" {
		p.EmployeeID = caller.EmployeeID
	}
	if caller.EmployeeName != "" {
		p.EmployeeName = caller.EmployeeName
	}

	result, err := d.leave.Handle(ctx, p)
	if err != nil {
		return userMessage(err, "I'm having trouble processing your leave request. "+
			"Please try again or contact HR directly.")
	}
	return result
}

func (d *Dispatcher) executeFeedback(ctx context.Context, params map[string]any, rawMessage string, caller CallerContext) string {
	p := feedback.Params{
		Action:     stringParam(params, "action"),
		Text:       stringParam(params, "feedback_text"),
		Privileged: caller.Privileged,
	}
	if p.Text == "" {
		p.Text = rawMessage
	}

	result, err := d.feedback.Handle(ctx, p)
	if err != nil {
		return userMessage(err, "I'm having trouble processing your feedback. Please try again later.")
	}
	return result
}

func (d *Dispatcher) executeGeneral(ctx context.Context, rawMessage string) string {
	reply, err := d.generator.Generate(ctx, generalSystem, rawMessage)
	if err != nil {
		slog.Warn("General response generation failed, using static greeting", "error", err)
		return generalFallback
	}
	return reply
}

// userMessage converts a handler error into user-visible text. Typed domain
// errors carry their own corrective messages; anything else is logged and
// replaced by the handler's generic apology so raw internals never reach the
// user.
func userMessage(err error, apology string) string {
	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		return validation.Message
	}

	var authz *domain.AuthorizationError
	if errors.As(err, &authz) {
		switch authz.Operation {
		case "view_trends":
			return "Feedback trends are only accessible to HR personnel. " +
				"If you'd like to submit feedback, please share your thoughts!"
		default:
			return "Only HR personnel can approve or reject leave requests. " +
				"Please contact your HR department."
		}
	}

	var balance *domain.InsufficientBalanceError
	if errors.As(err, &balance) {
		return fmt.Sprintf("Insufficient %s leave balance. "+
			"You have %d days remaining but requested %d days.",
			balance.LeaveType, balance.Remaining, balance.Requested)
	}

	var notFound *domain.NotFoundError
	if errors.As(err, &notFound) {
		return notFound.Message
	}

	slog.Error("Domain handler failed", "error", err)
	return apology
}

func stringParam(params map[string]any, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}

// intParam reads an integer parameter. Function-call arguments arrive as JSON
// numbers (float64).
func intParam(params map[string]any, key string) int {
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}
