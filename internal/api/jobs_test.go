package api_test

import (
	"errors"
	"strings"
	"testing"

	"shrink/internal/api"
	"shrink/internal/encoding"
	"shrink/internal/services"
)

func TestDecodeJobsAssignsIDs(t *testing.T) {
	body := `{"jobs":[
		{"id":"a","path":" /tmp/a.jpg ","image":{"compression_quality":70,"output_format":"png"}},
		{"path":"/tmp/b.mov","video":{"resolution":"1280x720","remove_audio":true}}
	]}`
	jobs, err := api.DecodeJobs(strings.NewReader(body))
	if err != nil {
		t.Fatalf("DecodeJobs: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != "a" || jobs[0].Path != "/tmp/a.jpg" {
		t.Fatalf("unexpected first job %+v", jobs[0])
	}
	if jobs[0].Image.Quality == nil || *jobs[0].Image.Quality != 70 || jobs[0].Image.OutputFormat != encoding.FormatPNG {
		t.Fatalf("image settings not decoded: %+v", jobs[0].Image)
	}
	if jobs[1].ID == "" {
		t.Fatal("expected generated id")
	}
	if !jobs[1].Video.RemoveAudio || jobs[1].Video.Resolution != "1280x720" {
		t.Fatalf("video settings not decoded: %+v", jobs[1].Video)
	}
}

func TestDecodeJobsRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"empty":     `{"jobs":[]}`,
		"no path":   `{"jobs":[{"id":"a"}]}`,
		"duplicate": `{"jobs":[{"id":"a","path":"/x.jpg"},{"id":"a","path":"/y.jpg"}]}`,
		"unknown":   `{"jobs":[{"path":"/x.jpg"}],"extra":true}`,
		"malformed": `{"jobs":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := api.DecodeJobs(strings.NewReader(body))
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
