package llm

import (
	"context"
	"fmt"

	"github.com/ashureev/virtual-hr/internal/domain"
	"google.golang.org/genai"
)

// Intent names a routable request category.
type Intent string

const (
	IntentPolicy   Intent = "policy_question"
	IntentLeave    Intent = "leave_management"
	IntentFeedback Intent = "feedback"
	IntentGeneral  Intent = "general"
)

// Classification is the routing decision for one message: exactly one of a
// structured intent with extracted parameters, or a direct free-text reply.
type Classification struct {
	Intent Intent
	Params map[string]any
	Reply  string
}

// IsReply reports whether the classifier answered directly instead of naming
// an intent.
func (c *Classification) IsReply() bool { return c.Reply != "" }

const routingSystemPrompt = `You are a helpful HR assistant. Analyze the user's message and
determine which function to call. Consider the conversation context when making decisions.

Key routing guidelines:
- Policy questions (what is, how does, explain) -> handle_policy_question
- Leave requests, balance checks, approvals -> handle_leave_management
- Feedback submission, trends -> handle_feedback
- Greetings, general chat -> handle_general_query

Extract all relevant parameters from the user's message. For dates, convert
relative dates like 'tomorrow' or 'next Monday' to YYYY-MM-DD format
(today is the current date based on the system).`

// functionIntents maps routing function names to intents.
var functionIntents = map[string]Intent{
	"handle_policy_question":  IntentPolicy,
	"handle_leave_management": IntentLeave,
	"handle_feedback":         IntentFeedback,
	"handle_general_query":    IntentGeneral,
}

func routingTools() []*genai.Tool {
	return []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name: "handle_policy_question",
				Description: "Answer questions about company policies, HR rules, leave policies, " +
					"workplace conduct, harassment policies, travel policies, benefits, " +
					"holidays, referrals, or any other company documentation.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"query": {
							Type:        genai.TypeString,
							Description: "The policy-related question to answer",
						},
					},
					Required: []string{"query"},
				},
			},
			{
				Name: "handle_leave_management",
				Description: "Handle leave-related requests: submit leave applications, " +
					"check leave balance, view leave history, or approve/reject leave " +
					"(HR only). Use this for any leave or time-off related queries.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"action": {
							Type:        genai.TypeString,
							Enum:        []string{"submit_leave", "check_balance", "view_history", "update_status"},
							Description: "The leave action to perform",
						},
						"employee_id": {
							Type:        genai.TypeString,
							Description: "Employee ID (if mentioned)",
						},
						"employee_name": {
							Type:        genai.TypeString,
							Description: "Employee name (if mentioned)",
						},
						"leave_type": {
							Type:        genai.TypeString,
							Enum:        []string{"Annual", "Sick", "Personal", "Maternity", "Paternity", "Marriage", "Bereavement"},
							Description: "Type of leave",
						},
						"start_date": {
							Type:        genai.TypeString,
							Description: "Leave start date in YYYY-MM-DD format",
						},
						"end_date": {
							Type:        genai.TypeString,
							Description: "Leave end date in YYYY-MM-DD format",
						},
						"num_days": {
							Type:        genai.TypeInteger,
							Description: "Number of leave days",
						},
						"reason": {
							Type:        genai.TypeString,
							Description: "Reason for leave or for approval/rejection",
						},
						"status": {
							Type:        genai.TypeString,
							Enum:        []string{"Approved", "Rejected"},
							Description: "New status for leave (HR approval/rejection)",
						},
					},
					Required: []string{"action"},
				},
			},
			{
				Name: "handle_feedback",
				Description: "Handle employee feedback: collect anonymous feedback about " +
					"workplace, management, culture, facilities, or any concerns. " +
					"Also handles viewing feedback trends (HR only).",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"action": {
							Type:        genai.TypeString,
							Enum:        []string{"submit_feedback", "view_trends"},
							Description: "The feedback action to perform",
						},
						"feedback_text": {
							Type:        genai.TypeString,
							Description: "The feedback content (for submission)",
						},
					},
					Required: []string{"action"},
				},
			},
			{
				Name: "handle_general_query",
				Description: "Handle general conversation, greetings, or queries that don't " +
					"fit into policy, leave, or feedback categories.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"query": {
							Type:        genai.TypeString,
							Description: "The general query",
						},
					},
					Required: []string{"query"},
				},
			},
		},
	}}
}

// Classify routes a message to an intent using Gemini function calling. The
// recent session history is passed as prior conversation turns so the model
// can resolve references to earlier messages.
func (c *Client) Classify(ctx context.Context, message string, history []domain.Turn) (*Classification, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		role := genai.Role(genai.RoleUser)
		if turn.Role == domain.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(message, genai.RoleUser))

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(routingSystemPrompt, genai.RoleUser),
		Tools:             routingTools(),
		ToolConfig: &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode: genai.FunctionCallingConfigModeAuto,
			},
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.routerModel, contents, config)
	if err != nil {
		return nil, fmt.Errorf("routing call: %w", err)
	}

	for _, call := range resp.FunctionCalls() {
		intent, ok := functionIntents[call.Name]
		if !ok {
			// Unknown function name: surface it so the router can fall back.
			return &Classification{Intent: Intent(call.Name), Params: call.Args}, nil
		}
		return &Classification{Intent: intent, Params: call.Args}, nil
	}

	reply := resp.Text()
	if reply == "" {
		reply = "How can I help you today?"
	}
	return &Classification{Reply: reply}, nil
}
