package garmin

// SocialProfile is the subset of the user profile the client needs.
type SocialProfile struct {
	DisplayName string `json:"displayName"`
	FullName    string `json:"fullName"`
}

// BodyBatteryDay is one day of the daily Body Battery report.
//
//	{
//	  "date": "2024-05-01",
//	  "charged": 50,
//	  "drained": 40,
//	  "bodyBatteryValuesArray": [[1714521600000, 30], [1714525200000, 50]]
//	}
type BodyBatteryDay struct {
	Charged *float64 `json:"charged"`
	Drained *float64 `json:"drained"`
	Date    string   `json:"date"`
	// Values are [timestamp, level] pairs. Members are left untyped because the
	// API emits nulls for gaps.
	Values [][]any `json:"bodyBatteryValuesArray"`
}

// HeartRateDay is one day of heart rate readings.
//
//	{
//	  "calendarDate": "2024-05-01",
//	  "restingHeartRate": 52,
//	  "heartRateValues": [[1714550400000, 60], [1714550520000, null]]
//	}
type HeartRateDay struct {
	RestingHeartRate *float64 `json:"restingHeartRate"`
	CalendarDate     string   `json:"calendarDate"`
	// Values are [epoch millis, bpm] pairs; the list itself may be null.
	Values [][]any `json:"heartRateValues"`
}
