// Package postgres provides PostgreSQL-specific implementations for the data
// storage interfaces defined in the internal/store package. It handles query
// execution, soft-delete visibility, and mapping between domain entities and
// database rows, including the nullable foreign key from usuarios to
// credencial_acceso.
package postgres
