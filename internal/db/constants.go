package db

// timeLayout is how timestamps are stored. Values are always UTC.
const timeLayout = "2006-01-02 15:04:05"
