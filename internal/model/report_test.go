package model

import "testing"

func TestReportCounts(t *testing.T) {
	r := &Report{
		Tasks: []*FetchTask{
			{Status: TaskStatusCompleted, OutputPath: "/a.wav"},
			{Status: TaskStatusCompleted, OutputPath: "/b.wav"},
			{Status: TaskStatusError, LastError: "boom"},
			{Status: TaskStatusSkipped, OutputPath: "/c.wav"},
		},
	}

	if r.Planned() != 4 {
		t.Errorf("Planned() = %d, expected 4", r.Planned())
	}
	if r.Succeeded() != 2 {
		t.Errorf("Succeeded() = %d, expected 2", r.Succeeded())
	}
	if r.Failed() != 1 {
		t.Errorf("Failed() = %d, expected 1", r.Failed())
	}
	if r.Skipped() != 1 {
		t.Errorf("Skipped() = %d, expected 1", r.Skipped())
	}

	produced := r.Produced()
	if len(produced) != 2 || produced[0] != "/a.wav" || produced[1] != "/b.wav" {
		t.Errorf("unexpected produced list %v", produced)
	}
	if failures := r.Failures(); len(failures) != 1 || failures[0].LastError != "boom" {
		t.Errorf("unexpected failures %v", failures)
	}
}
