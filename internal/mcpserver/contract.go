package mcpserver

// FrontMatterContract describes the canonical front-matter format that
// LLM consumers should follow when creating documents.
const FrontMatterContract = `# MarkNote Front Matter Contract

Every Markdown document stored in a MarkNote project SHOULD carry a
front-matter block. Documents without one are still indexed, but only
by filename.

## Structure

` + "```" + `markdown
---
uuid: 7f3c2a1e-...                  # stable identity; generated when missing
title: Human-readable title         # primary display name in search results
author: Alice, Bob                  # comma-separated list, or a single name
created_at: 2025-01-15              # "yyyy-MM-dd" or "yyyy-MM-dd HH:mm"
tags: [guide, project-x]            # bracketed list, or a bare value for one tag
summary: One-line description.
draft: true                         # omit entirely when not a draft
links: [other-doc, folder/ref]
---

Body text in standard Markdown.
` + "```" + `

## Rules

1. The ` + "`" + `---` + "`" + ` fences must be the very first thing in the file
   (no leading blank lines), and the closing fence is required.
2. Keys are lowercase. One ` + "`" + `key: value` + "`" + ` pair per line; the value
   may itself contain colons.
3. List values use ` + "`" + `[a, b, c]` + "`" + `. A bare value is read as a
   one-element list for ` + "`" + `tags` + "`" + `, ` + "`" + `author` + "`" + ` and ` + "`" + `links` + "`" + `.
4. ` + "`" + `draft` + "`" + ` is a draft only when the value is exactly ` + "`" + `true` + "`" + `.
5. Unknown keys are preserved as-is; do not rely on their order.
6. File paths end with ` + "`" + `.md` + "`" + ` and use forward slashes. Files whose
   name starts with a dot are never indexed.
`
