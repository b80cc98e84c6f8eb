package datarecording

var _ DataRecorder = (*ClickHouseRecorder)(nil)
var _ DataRecorder = (*sqliteWriter)(nil)
