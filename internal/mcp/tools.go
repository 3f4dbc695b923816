package mcp

import "github.com/mark3labs/mcp-go/mcp"

// recordSchema describes one record in a "records" argument.
var recordSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"kind": map[string]any{
			"type": "string",
			"enum": []string{"url", "text", "opaque"},
		},
		"text": map[string]any{
			"type":        "string",
			"description": "Payload for url and text records",
		},
		"data": map[string]any{
			"type":        "string",
			"description": "Base64 payload for opaque records",
		},
	},
	"required": []string{"kind"},
}

func withRecords(required bool) mcp.ToolOption {
	opts := []mcp.PropertyOption{
		mcp.Description("Ordered records. The first three (service URL, metadata, owner) are mandatory; the rest are optional readers."),
		mcp.Items(recordSchema),
	}
	if required {
		opts = append(opts, mcp.Required())
	}
	return mcp.WithArray("records", opts...)
}

func withAddress(what string) []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("id", mcp.Description("Draft ULID. Use either id or name to "+what+".")),
		mcp.WithString("name", mcp.Description("Draft name (case-insensitive). Use either id or name to "+what+".")),
	}
}

var profilesToolDef = mcp.NewTool("tag_profiles",
	mcp.WithDescription("List the known tag types with their usable bytes and effective write budget (usable minus the safety margin)."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var resolveToolDef = mcp.NewTool("tag_resolve",
	mcp.WithDescription("Infer the tag type and budget from a serial or identifier string. Unknown identifiers fall back to the default type."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("serial", mcp.Description("Serial or identifier reported by the reader, e.g. \"NTAG216-04A2\"")),
)

var estimateToolDef = mcp.NewTool("tag_estimate",
	mcp.WithDescription("Compute the encoded size of each record and check the set against every tag type."),
	mcp.WithReadOnlyHintAnnotation(true),
	withRecords(true),
)

var planToolDef = mcp.NewTool("tag_plan",
	append([]mcp.ToolOption{
		mcp.WithDescription("Fit records (or a stored draft) to a tag's budget. Mandatory records are always kept; optional records are added first-fit in order and the rest are reported as excluded. Fails with CAPACITY_EXCEEDED when the mandatory records alone do not fit."),
		mcp.WithReadOnlyHintAnnotation(true),
		withRecords(false),
		mcp.WithString("serial", mcp.Description("Resolve the tag type from this serial")),
		mcp.WithString("tag_type", mcp.Description("Tag type to plan for; overrides serial"), mcp.Enum("ntag213", "ntag215", "ntag216")),
		mcp.WithNumber("budget", mcp.Description("Explicit byte budget; overrides tag_type and serial"), mcp.Min(0)),
		mcp.WithBoolean("report", mcp.Description("Include a markdown report of the plan")),
	}, withAddress("plan a stored draft instead of records")...)...,
)

var storeToolDef = mcp.NewTool("draft_store",
	mcp.WithDescription("Store a named record set for later planning or writing."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Draft name, unique case-insensitively")),
	mcp.WithString("title", mcp.Description("Human-readable title; defaults to name")),
	withRecords(true),
	mcp.WithString("mode", mcp.Description("Behavior on name collision"), mcp.Enum("error", "replace")),
)

var fetchToolDef = mcp.NewTool("draft_fetch",
	append([]mcp.ToolOption{
		mcp.WithDescription("Fetch a stored draft with its records."),
		mcp.WithReadOnlyHintAnnotation(true),
	}, withAddress("fetch")...)...,
)

var listToolDef = mcp.NewTool("draft_list",
	mcp.WithDescription("List stored drafts, most recently updated first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithNumber("limit", mcp.Description("Max items (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
)

var deleteToolDef = mcp.NewTool("draft_delete",
	append([]mcp.ToolOption{
		mcp.WithDescription("Permanently delete a stored draft."),
		mcp.WithDestructiveHintAnnotation(true),
	}, withAddress("delete")...)...,
)
