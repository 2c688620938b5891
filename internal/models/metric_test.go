package models

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func ptr(v float64) *float64 { return &v }

func TestParseMetricKind(t *testing.T) {
	tests := []struct {
		in      string
		want    MetricKind
		wantErr bool
	}{
		{"bb", KindBodyBattery, false},
		{"hr", KindHeartRate, false},
		{" hr ", KindHeartRate, false},
		{"steps", "", true},
		{"", "", true},
		{"BB", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMetricKind(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMetricKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMetricKind(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMetricKind_Filename(t *testing.T) {
	if got := KindBodyBattery.Filename(2024, 5); got != "bb202405.csv" {
		t.Errorf("Filename() = %q, want bb202405.csv", got)
	}
	if got := KindHeartRate.Filename(2023, 12); got != "hr202312.csv" {
		t.Errorf("Filename() = %q, want hr202312.csv", got)
	}
}

func TestMetricKind_Fields(t *testing.T) {
	want := []string{"date", "charged", "drained", "max", "min"}
	if got := KindBodyBattery.Fields(); !reflect.DeepEqual(got, want) {
		t.Errorf("Fields() = %v, want %v", got, want)
	}

	// Callers must not be able to corrupt the shared header.
	fields := KindHeartRate.Fields()
	fields[0] = "mutated"
	if KindHeartRate.Fields()[0] != "timestamp" {
		t.Error("Fields() returned a shared slice")
	}

	if MetricKind("xx").Fields() != nil {
		t.Error("unknown kind should have no fields")
	}
}

func TestBodyBatteryRow_Field(t *testing.T) {
	row := BodyBatteryRow{Date: "2024-05-01", Charged: ptr(50), Drained: ptr(40), Max: ptr(70)}

	tests := []struct {
		name   string
		want   string
		wantOK bool
	}{
		{"date", "2024-05-01", true},
		{"charged", "50", true},
		{"drained", "40", true},
		{"max", "70", true},
		{"min", "", true},
		{"extra", "", false},
	}

	for _, tt := range tests {
		got, ok := row.Field(tt.name)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Field(%q) = (%q, %v), want (%q, %v)", tt.name, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestHeartRateRow_Field(t *testing.T) {
	row := HeartRateRow{
		Timestamp: time.Date(2024, 5, 1, 8, 30, 5, 0, time.UTC),
		HeartRate: 60,
	}

	if got, _ := row.Field("timestamp"); got != "2024-05-01 08:30:05" {
		t.Errorf("timestamp = %q", got)
	}
	if got, _ := row.Field("heartrate"); got != "60" {
		t.Errorf("heartrate = %q", got)
	}
	if _, ok := row.Field("date"); ok {
		t.Error("unexpected date field")
	}
}

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{"Valid", Request{Year: 2024, Months: []int{5, 5}, Kinds: []MetricKind{KindBodyBattery}}, false},
		{"NoKinds", Request{Year: 2024, Months: []int{5}}, true},
		{"UnknownKind", Request{Year: 2024, Months: []int{5}, Kinds: []MetricKind{"xx"}}, true},
		{"NoMonths", Request{Year: 2024, Kinds: AllKinds}, true},
		{"MonthZero", Request{Year: 2024, Months: []int{0}, Kinds: AllKinds}, true},
		{"MonthThirteen", Request{Year: 2024, Months: []int{13}, Kinds: AllKinds}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			var usageErr *UsageError
			if err != nil && !errors.As(err, &usageErr) {
				t.Errorf("Validate() error %T is not a UsageError", err)
			}
		})
	}
}

func TestRunReport_Status(t *testing.T) {
	tests := []struct {
		name   string
		report RunReport
		want   string
	}{
		{"AllOK", RunReport{Units: []UnitResult{{Status: UnitOK}, {Status: UnitEmpty}}}, "ok"},
		{"Partial", RunReport{Units: []UnitResult{{Status: UnitOK}, {Status: UnitFailed}}}, "partial"},
		{"AllFailed", RunReport{Units: []UnitResult{{Status: UnitFailed}, {Status: UnitSkipped}}}, "failed"},
		{"SessionFailure", RunReport{Err: errors.New("no session")}, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.report.Status(); got != tt.want {
				t.Errorf("Status() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("boom")

	wrapped := []error{
		&SessionError{Err: cause},
		&FetchError{Err: cause, Kind: KindHeartRate, Year: 2024, Month: 5},
		&DataWriteError{Err: cause, Path: "hr202405.csv"},
	}
	for _, err := range wrapped {
		if !errors.Is(err, cause) {
			t.Errorf("%T does not unwrap to its cause", err)
		}
	}

	fe := &FetchError{Err: cause, Kind: KindHeartRate, Year: 2024, Month: 5}
	if fe.Error() != "fetch hr 2024-05: boom" {
		t.Errorf("FetchError.Error() = %q", fe.Error())
	}
}
