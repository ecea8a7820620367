package mcpserver

import "github.com/starford/thoughtmap/internal/codec"

// DocumentFormatContract describes the YAML thought document format that
// LLM consumers should follow when creating documents.
const DocumentFormatContract = `# thoughtmap Document Format Contract

Every thought document stored in thoughtmap MUST follow this structure.

## Structure

A document is a YAML mapping with an optional ` + "`" + `title` + "`" + ` and a list of root
` + "`" + `thoughts` + "`" + `. Each thought may carry nested ` + "`" + `sub_thoughts` + "`" + `.

| Field             | Required | Meaning                                                      |
|-------------------|----------|--------------------------------------------------------------|
| id                | yes      | Unique across the vault; other thoughts alias it by this id |
| content           | no       | Text of the thought                                          |
| type              | yes      | question, hypothesis, evaluation, conclusion, meta-reflection, recursive-reference |
| status            | no       | pending (default), in-progress, complete, error, memoized    |
| depth             | no       | Recursion depth, a non-negative integer                      |
| memoization_key   | no       | Key under which the result was memoized                      |
| created_at        | no       | RFC 3339 timestamp                                           |
| alias             | no       | Id of another thought this one refers back to                |
| isomorphic        | no       | Map of domain (computational, cognitive, representational) to any value |
| sub_thoughts      | no       | Child thoughts                                               |

## Rules

1. **Ids are unique.** A duplicate id inside one document is rejected. Across
   documents the first one loaded wins.
2. **Aliases may cross documents.** An alias to an unknown id is kept in the
   file but not drawn.
3. **File paths** end with ` + "`" + codec.Ext + "`" + ` and use forward slashes.
4. **Encoding** is UTF-8 with a trailing newline.

## Example

` + "```" + `yaml
` + codec.Template + "```" + `
`
