package mcp

import "github.com/mark3labs/mcp-go/mcp"

// evaluateMessageTool defines the evaluate_message MCP tool.
var evaluateMessageTool = mcp.NewTool("evaluate_message",
	mcp.WithDescription("Compute the trust score of a received mesh message from its sender, hop count, path security and stored peer verifications."),
	mcp.WithString("message_id",
		mcp.Required(),
		mcp.Description("Identifier of the message"),
	),
	mcp.WithString("sender_id",
		mcp.Required(),
		mcp.Description("Contact id of the original sender"),
	),
	mcp.WithNumber("hop_count",
		mcp.Description("Number of relays the message crossed (default 0)"),
	),
	mcp.WithBoolean("insecure_hop",
		mcp.Description("Whether any hop on the path was unencrypted"),
	),
)

// setTrustLevelTool defines the set_trust_level MCP tool.
var setTrustLevelTool = mcp.NewTool("set_trust_level",
	mcp.WithDescription("Set a contact's trust level."),
	mcp.WithString("contact_id",
		mcp.Required(),
		mcp.Description("Contact identifier"),
	),
	mcp.WithString("level",
		mcp.Required(),
		mcp.Description("Trust level: 0-3 or unknown, known, friend, close"),
	),
)

// getTrustLevelTool defines the get_trust_level MCP tool.
var getTrustLevelTool = mcp.NewTool("get_trust_level",
	mcp.WithDescription("Get a contact's trust level. Contacts without a record are Unknown."),
	mcp.WithString("contact_id",
		mcp.Required(),
		mcp.Description("Contact identifier"),
	),
)

// addVerificationTool defines the add_verification MCP tool.
var addVerificationTool = mcp.NewTool("add_verification",
	mcp.WithDescription("Record a peer's confirmation or rejection of a message. Each verifier may vote once per message."),
	mcp.WithString("message_id",
		mcp.Required(),
		mcp.Description("Identifier of the message being vouched for"),
	),
	mcp.WithString("verifier_id",
		mcp.Required(),
		mcp.Description("Contact id of the voting peer"),
	),
	mcp.WithBoolean("confirmed",
		mcp.Required(),
		mcp.Description("true to confirm, false to reject"),
	),
	mcp.WithString("comment",
		mcp.Description("Optional free-text comment"),
	),
)

// verificationStatsTool defines the verification_stats MCP tool.
var verificationStatsTool = mcp.NewTool("verification_stats",
	mcp.WithDescription("Get unweighted confirmation and rejection counts for a message."),
	mcp.WithString("message_id",
		mcp.Required(),
		mcp.Description("Identifier of the message"),
	),
)
