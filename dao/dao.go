package dao

// byUser is the raw predicate for looking rows up by their user column.
// The identifier has to be quoted: user is a reserved word in PostgreSQL,
// where the bare keyword parses as CURRENT_USER instead of the column.
const byUser = `"user" = ?`
