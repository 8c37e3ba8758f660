// Package domain contains the core entities of the application: users and
// the access credentials they own, together with their validation rules.
// Entities here are persistence-agnostic; stores and services enforce the
// storage-level invariants.
package domain
