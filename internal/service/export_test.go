package service

// ExportedEditGate is an exported alias so _test packages can test the gate.
type ExportedEditGate = editGate
