package collection

const (
	operationCreateVenue       = "create_venue"
	operationCreateMachineType = "create_machine_type"
	operationAddMachine        = "add_machine"
	operationCreatePeriod      = "create_period"
	operationUpdatePeriod      = "update_period"
	operationDeletePeriod      = "delete_period"
	operationReconcile         = "reconcile"
	operationUpdateDetail      = "update_detail"
	operationDeleteDetail      = "delete_detail"
	operationApplyOverrides    = "apply_overrides"
	operationImport            = "import_spreadsheet"
	operationAttach            = "attach_file"
	operationDetach            = "detach_file"

	operationStatusOK    = "ok"
	operationStatusError = "error"

	errorOperationService = "service"
	errorSubjectPeriod    = "period"
	errorSubjectExport    = "export"
	errorSubjectMapping   = "mapping"
	errorSubjectImport    = "import"
	errorSubjectBlob      = "blob"
	errorCodeOverlap      = "overlap"
	errorCodeLocked       = "locked"
	errorCodeDecode       = "decode"
	errorCodeTarget       = "target"
	errorCodeRead         = "read"
	errorCodeWrite        = "write"

	ignoreSentinel int64 = -1

	rateNoteSeat     = "seat rate"
	rateNoteOverride = "machine override"
	rateNoteType     = "type default: %s"
	rateNotePerSeat  = " (x%d seats)"
	rateNoteNone     = "no rate"

	seatSuffixFormat = " - PUESTO %d"
	labelSeparator   = " - "
)
