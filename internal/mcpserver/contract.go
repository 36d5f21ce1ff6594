package mcpserver

// RecordContract describes the records LLM consumers create and update.
const RecordContract = `# Scriptorium Record Contract

Scriptorium stores three kinds of records. Ids are integers assigned by the
server. Timestamps are ISO-8601 in UTC with millisecond precision and are set
by the server; never send them.

## Subject

| Field       | Type     | Create   | Notes                                   |
|-------------|----------|----------|-----------------------------------------|
| title       | string   | required |                                         |
| description | string   | required | may be empty                            |
| coverColor  | string   | optional | hex ` + "`#rgb`" + ` or ` + "`#rrggbb`" + `, default ` + "`#e2e8f0`" + ` |
| visibility  | string   | optional | private (default), shared, public       |
| tags        | string[] | optional | default []                              |

## Document

A document is metadata for a file. Upload the file with ` + "`upload_file`" + `
first and use the returned ` + "`fileName`" + `.

| Field           | Type      | Create   |
|-----------------|-----------|----------|
| subjectId       | integer   | required |
| title           | string    | required |
| description     | string    | required |
| fileName        | string    | required |
| tags            | string[]  | optional |
| linkedReportIds | integer[] | optional |

Documents cannot be edited after creation.

## Report

| Field             | Type      | Create   | Notes                          |
|-------------------|-----------|----------|--------------------------------|
| subjectId         | integer   | required | may be changed to move a report |
| title             | string    | required |                                |
| content           | string    | required | Markdown                       |
| status            | string    | optional | draft (default), final, archived |
| tags              | string[]  | optional |                                |
| linkedDocumentIds | integer[] | optional |                                |

## Rules

1. Updates are partial: omitted fields keep their current value.
2. Nothing is ever deleted.
3. The subject a document or report points to is not checked. Use ids
   returned by ` + "`list_subjects`" + `.
4. Linked ids are not checked either; keep them pointing at records of the
   same subject.
5. The timeline shows a report edit only when it happened more than one
   second after the report was created.
`
