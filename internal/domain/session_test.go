package domain

import "testing"

func TestSession_RecordAnalysisClearsImprovement(t *testing.T) {
	s := NewSession(42)
	s.RecordAnalysis("first", &AnalysisResult{E: 0.5})
	s.RecordImprovement("better first")

	if s.ImprovedPrompt != "better first" {
		t.Fatalf("ImprovedPrompt = %q", s.ImprovedPrompt)
	}

	s.RecordAnalysis("second", &AnalysisResult{E: 0.2})

	if s.OriginalPrompt != "second" {
		t.Errorf("OriginalPrompt = %q, want second", s.OriginalPrompt)
	}
	if s.ImprovedPrompt != "" {
		t.Errorf("ImprovedPrompt should be cleared, got %q", s.ImprovedPrompt)
	}
	if !s.HasAnalysis() || s.Analysis.E != 0.2 {
		t.Errorf("Analysis = %+v", s.Analysis)
	}
}

func TestSession_CredentialFallback(t *testing.T) {
	s := NewSession(1)
	if got := s.Credential("default-key"); got != "default-key" {
		t.Errorf("Credential() = %q, want default-key", got)
	}
	if got := s.ModelOr("gemini-2.5-flash"); got != "gemini-2.5-flash" {
		t.Errorf("ModelOr() = %q", got)
	}

	s.APIKey = "user-key"
	s.Model = "gemini-2.5-pro"
	if got := s.Credential("default-key"); got != "user-key" {
		t.Errorf("Credential() = %q, want user-key", got)
	}
	if got := s.ModelOr("gemini-2.5-flash"); got != "gemini-2.5-pro" {
		t.Errorf("ModelOr() = %q", got)
	}
}
