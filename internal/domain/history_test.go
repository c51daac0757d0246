package domain

import "testing"

func TestHistoryEntry_Validate(t *testing.T) {
	tests := []struct {
		kind    HistoryKind
		wantErr bool
	}{
		{KindAnalysis, false},
		{KindRefinement, false},
		{"other", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			e := &HistoryEntry{Kind: tt.kind}
			if err := e.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHistoryEntry_Analysis(t *testing.T) {
	e := &HistoryEntry{Kind: KindAnalysis, Output: `{"E":0.3,"F":1,"M":0,"N":0.5,"B":0.1,"summary":"ok"}`}
	res, err := e.Analysis()
	if err != nil {
		t.Fatalf("Analysis() error = %v", err)
	}
	if res.E != 0.3 || res.F != 1 || res.Summary != "ok" {
		t.Errorf("Analysis() = %+v", res)
	}

	e = &HistoryEntry{Kind: KindRefinement, Output: "improved"}
	if _, err := e.Analysis(); err != ErrInvalidKind {
		t.Errorf("Analysis() on refinement error = %v, want ErrInvalidKind", err)
	}
}
