// Package logging configures the zerolog loggers used across frapfit.
//
// Log output goes to stderr so that stdout carries only the report. Each
// component receives a child logger tagged with a "component" field; library
// packages default to zerolog.Nop() until a logger is injected.
package logging
