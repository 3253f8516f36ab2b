package sqlite

// Schema DDL. The database is rebuilt from documents.jsonl on every Attach.
const (
	createDocuments = `CREATE TABLE documents (
    path TEXT PRIMARY KEY,
    parent TEXT NOT NULL,
    body TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	idxDocumentsParent = `CREATE INDEX idx_documents_parent ON documents(parent);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createDocuments,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxDocumentsParent,
}
