package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/relicdex/internal/ops"
)

var searchToolDef = mcp.NewTool("kb_search",
	mcp.WithDescription("Search a built item collection. Returns the chunks most similar to the query, "+
		"ranked by relevance score in [0,1]. Each chunk starts with 'Item: <name>' and ends with 'ItemID: <id>'."),
	mcp.WithString("collection",
		mcp.Required(),
		mcp.Description("Collection name (see kb_collections)"),
	),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Free-text query, e.g. an item name or a property"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of hits (default 5)"),
		mcp.Min(1),
		mcp.Max(ops.MaxSearchLimit),
	),
	mcp.WithNumber("min_relevance",
		mcp.Description("Drop hits scoring below this value (default 0.2)"),
		mcp.Min(0),
		mcp.Max(1),
	),
)

var fetchToolDef = mcp.NewTool("kb_fetch",
	mcp.WithDescription("Fetch one chunk by id. Oversized items are split into '<id>_partN' chunks."),
	mcp.WithString("collection",
		mcp.Required(),
		mcp.Description("Collection name"),
	),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Chunk id, e.g. act1_sunlit_blade or act1_sunlit_blade_part0"),
	),
)

var collectionsToolDef = mcp.NewTool("kb_collections",
	mcp.WithDescription("List built collections with their source file, record and chunk counts."),
)

var chunksToolDef = mcp.NewTool("kb_chunks",
	mcp.WithDescription("List chunk ids of a collection in source order (no text)."),
	mcp.WithString("collection",
		mcp.Required(),
		mcp.Description("Collection name"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Page size (default 20, max 100)"),
	),
	mcp.WithNumber("offset",
		mcp.Description("Items to skip (default 0)"),
	),
)
