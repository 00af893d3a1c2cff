// Package oracle asks an external LLM to judge process health from
// captured output.
//
// The client speaks the Ollama generate API: one POST per assessment
// carrying the recent output lines and a JSON schema that constrains
// the model's reply to a classification token plus a short reason.
//
// The oracle is treated as an unreliable collaborator. Every failure
// mode (timeout, connection refused, bad status, malformed reply,
// unrecognised classification) degrades to an `unknown` verdict with
// the cause in the rationale; Assess never returns an error and never
// blocks past its configured timeout. The supervisor treats `unknown`
// as "no actionable signal", so a flaky oracle can neither halt
// supervision nor trigger spurious restarts.
package oracle
