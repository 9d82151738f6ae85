// Package upstream contains HTTP clients for the external text-generation
// and sentiment-analysis services. Responses are parsed into explicit
// result types; an unsuccessful or malformed response fails closed instead
// of producing a partially filled record.
package upstream
