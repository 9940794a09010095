package mcp

import "github.com/mark3labs/mcp-go/mcp"

var noteCreateToolDef = mcp.NewTool("note_create",
	mcp.WithDescription("Pin a note to a page of a document. Coordinates are normalized [0,1] fractions of the page unless coordinate_space is \"pixel\"."),
	mcp.WithString("doc_id", mcp.Required(), mcp.Description("Document id returned by document_upload or document_list")),
	mcp.WithNumber("page", mcp.Description("1-based page number (default 1)")),
	mcp.WithNumber("x", mcp.Required(), mcp.Description("Horizontal position")),
	mcp.WithNumber("y", mcp.Required(), mcp.Description("Vertical position")),
	mcp.WithString("content", mcp.Required(), mcp.Description("Note text; may be empty")),
	mcp.WithString("color", mcp.Description("Hex color (default #fbbf24)")),
	mcp.WithString("coordinate_space", mcp.Enum("normalized", "pixel"), mcp.Description("Frame of x and y (default normalized)")),
	mcp.WithNumber("ref_width", mcp.Description("Reference width for pixel coordinates")),
	mcp.WithNumber("ref_height", mcp.Description("Reference height for pixel coordinates")),
)

var noteGetToolDef = mcp.NewTool("note_get",
	mcp.WithDescription("Fetch a single note by id."),
	mcp.WithNumber("id", mcp.Required(), mcp.Description("Note id")),
)

var noteListToolDef = mcp.NewTool("note_list",
	mcp.WithDescription("List the notes of a document in creation order, optionally restricted to one page."),
	mcp.WithString("doc_id", mcp.Required(), mcp.Description("Document id")),
	mcp.WithNumber("page", mcp.Description("Only return notes on this page")),
)

var noteUpdateToolDef = mcp.NewTool("note_update",
	mcp.WithDescription("Replace every field of an existing note. Omitted optional fields reset to their defaults."),
	mcp.WithNumber("id", mcp.Required(), mcp.Description("Note id")),
	mcp.WithString("doc_id", mcp.Required(), mcp.Description("Document id")),
	mcp.WithNumber("page", mcp.Description("1-based page number (default 1)")),
	mcp.WithNumber("x", mcp.Required(), mcp.Description("Horizontal position")),
	mcp.WithNumber("y", mcp.Required(), mcp.Description("Vertical position")),
	mcp.WithString("content", mcp.Required(), mcp.Description("Note text; may be empty")),
	mcp.WithString("color", mcp.Description("Hex color (default #fbbf24)")),
	mcp.WithString("coordinate_space", mcp.Enum("normalized", "pixel"), mcp.Description("Frame of x and y (default normalized)")),
	mcp.WithNumber("ref_width", mcp.Description("Reference width for pixel coordinates")),
	mcp.WithNumber("ref_height", mcp.Description("Reference height for pixel coordinates")),
)

var noteDeleteToolDef = mcp.NewTool("note_delete",
	mcp.WithDescription("Permanently delete a note."),
	mcp.WithNumber("id", mcp.Required(), mcp.Description("Note id")),
)

var noteExportToolDef = mcp.NewTool("note_export",
	mcp.WithDescription("Render all notes of a document grouped by page as markdown or HTML. Returns the content, or writes it to a file when path or to_file is set."),
	mcp.WithString("doc_id", mcp.Required(), mcp.Description("Document id")),
	mcp.WithString("format", mcp.Enum("md", "html"), mcp.Description("Output format (default md)")),
	mcp.WithString("path", mcp.Description("Destination file; must be inside the export directory or an allowed path")),
	mcp.WithBoolean("to_file", mcp.Description("Write to a generated file in the export directory")),
)

var documentListToolDef = mcp.NewTool("document_list",
	mcp.WithDescription("List uploaded documents with their type, size, page count and note count."),
)

var documentUploadToolDef = mcp.NewTool("document_upload",
	mcp.WithDescription("Store a PDF or image. Identical bytes are stored once and return the existing doc_id. Provide either path or data_base64."),
	mcp.WithString("path", mcp.Description("Local file to upload; must be inside an allowed directory")),
	mcp.WithString("data_base64", mcp.Description("Base64-encoded file content")),
	mcp.WithString("filename", mcp.Description("Display filename; required with data_base64")),
)
