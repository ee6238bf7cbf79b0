package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/meshtrust/internal/trust"
	"github.com/ziadkadry99/meshtrust/internal/verification"
)

// handleEvaluateMessage scores a message against the stored votes.
func (s *Server) handleEvaluateMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	messageID, err := request.RequireString("message_id")
	if err != nil || messageID == "" {
		return mcp.NewToolResultError("missing required parameter: message_id"), nil
	}
	senderID, err := request.RequireString("sender_id")
	if err != nil || senderID == "" {
		return mcp.NewToolResultError("missing required parameter: sender_id"), nil
	}
	hops := request.GetInt("hop_count", 0)
	if hops < 0 {
		return mcp.NewToolResultError("hop_count must be non-negative"), nil
	}
	insecure := request.GetBool("insecure_hop", false)

	e := s.scorer.EvaluateMessage(messageID, senderID, hops, insecure)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s trust (%.2f)\n\n", e.Indicator(), e.Rating(), e.OverallTrustScore)
	fmt.Fprintf(&b, "- **Message:** %s\n", e.MessageID)
	fmt.Fprintf(&b, "- **Sender:** %s (%s)\n", e.OriginalSenderID, e.SenderTrustLevel)
	fmt.Fprintf(&b, "- **Hops:** %d", e.HopCount)
	if e.HasInsecureHop {
		b.WriteString(" (insecure hop on path)")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "- **Verifications:** %d confirmed, %d rejected\n", e.Confirmations, e.Rejections)

	return mcp.NewToolResultText(b.String()), nil
}

// handleSetTrustLevel records a manual trust decision.
func (s *Server) handleSetTrustLevel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	contactID, err := request.RequireString("contact_id")
	if err != nil || contactID == "" {
		return mcp.NewToolResultError("missing required parameter: contact_id"), nil
	}
	levelStr, err := request.RequireString("level")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: level"), nil
	}
	level, err := trust.ParseLevel(levelStr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.trust.Set(ctx, contactID, level, true); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("trust level set but not persisted: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s is now %s (level %d).", contactID, level, int(level))), nil
}

// handleGetTrustLevel reports a contact's effective trust level.
func (s *Server) handleGetTrustLevel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	contactID, err := request.RequireString("contact_id")
	if err != nil || contactID == "" {
		return mcp.NewToolResultError("missing required parameter: contact_id"), nil
	}

	ct := s.trust.Get(contactID)
	text := fmt.Sprintf("%s: %s (level %d, factor %.2f)", contactID, ct.Level, int(ct.Level), ct.Level.Factor())
	if ct.LastUpdated.IsZero() {
		text += ", no stored record"
	} else if ct.ManuallySet {
		text += ", set manually"
	}
	return mcp.NewToolResultText(text), nil
}

// handleAddVerification records one peer vote.
func (s *Server) handleAddVerification(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	messageID, err := request.RequireString("message_id")
	if err != nil || messageID == "" {
		return mcp.NewToolResultError("missing required parameter: message_id"), nil
	}
	verifierID, err := request.RequireString("verifier_id")
	if err != nil || verifierID == "" {
		return mcp.NewToolResultError("missing required parameter: verifier_id"), nil
	}
	confirmed, err := request.RequireBool("confirmed")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: confirmed"), nil
	}
	comment := request.GetString("comment", "")

	out, err := s.verifications.Add(ctx, messageID, verifierID, confirmed, comment)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("verification recorded but not persisted: %v", err)), nil
	}
	if out == verification.Duplicate {
		return mcp.NewToolResultError(fmt.Sprintf("%s has already verified %s", verifierID, messageID)), nil
	}

	verb := "rejected"
	if confirmed {
		verb = "confirmed"
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s %s %s.", verifierID, verb, messageID)), nil
}

// handleVerificationStats summarizes the votes on a message.
func (s *Server) handleVerificationStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	messageID, err := request.RequireString("message_id")
	if err != nil || messageID == "" {
		return mcp.NewToolResultError("missing required parameter: message_id"), nil
	}

	st := s.verifications.Stats(messageID)
	if st.TotalVerifications == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No verifications recorded for %s.", messageID)), nil
	}

	consensus := "no positive consensus"
	if st.HasPositiveConsensus() {
		consensus = "positive consensus"
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"%s: %d verifications, %d confirmed, %d rejected, net %+d (%s)",
		messageID, st.TotalVerifications, st.Confirmations, st.Rejections, st.NetScore(), consensus,
	)), nil
}
