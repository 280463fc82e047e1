package entities

import (
	"errors"
	"testing"
)

func summarize(t *testing.T, raw string) CaptureSummary {
	t.Helper()
	p, err := DecodeCapturePayload([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeCapturePayload(%s): %v", raw, err)
	}
	return p.Summary()
}

func TestCaptureSummaryDuration(t *testing.T) {
	cases := []struct {
		name     string
		payload  string
		wantDur  *float64
		wantPts  int
		wantHasP bool
	}{
		{
			name:     "single offset is undefined",
			payload:  `{"lidar_data":[{"x":1,"y":2,"z":3,"timestamp_sec":5}]}`,
			wantPts:  1,
			wantHasP: true,
		},
		{
			name:     "null offsets are skipped",
			payload:  `{"lidar_data":[{"timestamp_sec":2},{"timestamp_sec":9},{"timestamp_sec":null}]}`,
			wantDur:  ptr(7),
			wantPts:  3,
			wantHasP: true,
		},
		{
			name:     "one valid among many nulls",
			payload:  `{"lidar_data":[{"timestamp_sec":null},{"timestamp_sec":4},{},{"timestamp_sec":null}]}`,
			wantPts:  4,
			wantHasP: true,
		},
		{
			name:     "unordered offsets",
			payload:  `{"lidar_data":[{"timestamp_sec":3.5},{"timestamp_sec":1.0},{"timestamp_sec":2.0}]}`,
			wantDur:  ptr(2.5),
			wantPts:  3,
			wantHasP: true,
		},
		{
			name:    "no points",
			payload: `{"lidar_data":[]}`,
		},
		{
			name:    "absent points",
			payload: `{"profile_data":{}}`,
		},
		{
			name:    "points not a list",
			payload: `{"lidar_data":{"x":1}}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := summarize(t, tc.payload)
			if s.PointCount != tc.wantPts {
				t.Fatalf("PointCount: want=%d got=%d", tc.wantPts, s.PointCount)
			}
			if s.HasPointData != tc.wantHasP {
				t.Fatalf("HasPointData: want=%v got=%v", tc.wantHasP, s.HasPointData)
			}
			switch {
			case tc.wantDur == nil && s.CaptureDuration != nil:
				t.Fatalf("CaptureDuration: want undefined got=%v", *s.CaptureDuration)
			case tc.wantDur != nil && s.CaptureDuration == nil:
				t.Fatalf("CaptureDuration: want=%v got undefined", *tc.wantDur)
			case tc.wantDur != nil && *s.CaptureDuration != *tc.wantDur:
				t.Fatalf("CaptureDuration: want=%v got=%v", *tc.wantDur, *s.CaptureDuration)
			}
		})
	}
}

func TestCaptureSummaryPointCountIsStructural(t *testing.T) {
	s := summarize(t, `{"lidar_data":[{"x":1,"y":2,"z":3},{"x":"bad"}]}`)
	if s.PointCount != 2 || !s.HasPointData {
		t.Fatalf("want point_count=2 has_point_data=true, got %d %v", s.PointCount, s.HasPointData)
	}

	s = summarize(t, `{"lidar_data":[1,"two",null]}`)
	if s.PointCount != 3 {
		t.Fatalf("non-object points still count: want 3 got %d", s.PointCount)
	}
}

func TestCaptureSummaryProfile(t *testing.T) {
	cases := []struct {
		payload string
		want    bool
	}{
		{`{"profile_data":{"personality_traits":{"openness":0.7}}}`, true},
		{`{"profile_data":{"personality_traits":["calm"]}}`, true},
		{`{"profile_data":{"personality_traits":{}}}`, false},
		{`{"profile_data":{"personality_traits":null}}`, false},
		{`{"profile_data":{"personality_traits":""}}`, false},
		{`{"profile_data":{"age":33}}`, false},
		{`{"profile_data":"not an object"}`, false},
		{`{}`, false},
	}
	for _, tc := range cases {
		if got := summarize(t, tc.payload).HasProfileData; got != tc.want {
			t.Fatalf("HasProfileData(%s): want=%v got=%v", tc.payload, tc.want, got)
		}
	}
}

func TestCaptureSummaryIsPure(t *testing.T) {
	raw := `{"profile_data":{"personality_traits":{"a":1}},"lidar_data":[{"timestamp_sec":1},{"timestamp_sec":4}]}`
	p, err := DecodeCapturePayload([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeCapturePayload: %v", err)
	}
	first, second := p.Summary(), p.Summary()
	if first.HasProfileData != second.HasProfileData || first.HasPointData != second.HasPointData ||
		first.PointCount != second.PointCount || *first.CaptureDuration != *second.CaptureDuration {
		t.Fatalf("Summary not stable: %+v vs %+v", first, second)
	}

	again, err := DecodeCapturePayload(p.Bytes())
	if err != nil {
		t.Fatalf("re-decode: %v", err)
	}
	if *again.Summary().CaptureDuration != 3 {
		t.Fatalf("re-decoded duration: want 3 got %v", *again.Summary().CaptureDuration)
	}
}

func TestDecodeCapturePayloadRejectsNonObject(t *testing.T) {
	for _, raw := range []string{``, `[]`, `"x"`, `null`, `{"broken":`} {
		_, err := DecodeCapturePayload([]byte(raw))
		if err == nil {
			t.Fatalf("DecodeCapturePayload(%q): expected error", raw)
		}
	}
	_, err := DecodeCapturePayload([]byte(`[1]`))
	if !errors.Is(err, ErrPayloadNotObject) {
		t.Fatalf("want ErrPayloadNotObject, got %v", err)
	}
}

func TestSetPayloadCountsCompactBytes(t *testing.T) {
	p, err := DecodeCapturePayload([]byte("{ \"lidar_data\" : [ ] }"))
	if err != nil {
		t.Fatalf("DecodeCapturePayload: %v", err)
	}
	var c CombinedCapture
	c.SetPayload(p)
	if c.PayloadBytes != int64(len(`{"lidar_data":[]}`)) {
		t.Fatalf("PayloadBytes: got %d", c.PayloadBytes)
	}
}

func ptr(f float64) *float64 { return &f }
