package model

import "testing"

func TestNewJob(t *testing.T) {
	job := NewJob("https://youtube.com/watch?v=test")

	if job.ID == "" {
		t.Error("Expected non-empty job ID")
	}
	if job.SourceURL != "https://youtube.com/watch?v=test" {
		t.Errorf("Expected SourceURL to be preserved, got '%s'", job.SourceURL)
	}
	if job.Status != StatusPending {
		t.Errorf("Expected status Pending, got %s", job.Status)
	}
	if job.Kind != KindSingle {
		t.Errorf("Expected kind single, got %s", job.Kind)
	}
	if job.SubmittedAt.IsZero() {
		t.Error("Expected SubmittedAt to be set")
	}

	other := NewJob("https://youtube.com/watch?v=test")
	if other.ID == job.ID {
		t.Error("Expected unique IDs for separate jobs")
	}
}

func TestJob_Clone(t *testing.T) {
	job := NewJob("https://youtube.com/watch?v=test")
	job.ProgressPercent = 42

	clone := job.Clone()
	clone.ProgressPercent = 99
	clone.Status = StatusRunning

	if job.ProgressPercent != 42 {
		t.Errorf("Expected original progress unchanged, got %v", job.ProgressPercent)
	}
	if job.Status != StatusPending {
		t.Errorf("Expected original status unchanged, got %s", job.Status)
	}
}

func TestJob_GetDisplayTitle(t *testing.T) {
	tests := []struct {
		title      string
		outputFile string
		url        string
		expected   string
	}{
		{"Video Title", "", "https://youtube.com/watch?v=123", "Video Title"},
		{"", "/downloads/My_Song.mp4", "https://youtube.com/watch?v=123", "My_Song"},
		{"", "", "https://youtube.com/watch?v=123", "https://youtube.com/watch?v=123"},
		{"https://youtube.com/watch?v=123", "", "https://youtube.com/watch?v=123", "https://youtube.com/watch?v=123"},
	}

	for _, test := range tests {
		job := &Job{
			Title:      test.title,
			OutputFile: test.outputFile,
			SourceURL:  test.url,
		}
		if result := job.GetDisplayTitle(); result != test.expected {
			t.Errorf("GetDisplayTitle() with title='%s', output='%s' = '%s', expected '%s'",
				test.title, test.outputFile, result, test.expected)
		}
	}
}
