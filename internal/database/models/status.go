package models

type PrinterStatus string

const (
	PrinterAvailable   PrinterStatus = "available"
	PrinterRented      PrinterStatus = "rented"
	PrinterDeployed    PrinterStatus = "deployed"
	PrinterMaintenance PrinterStatus = "maintenance"
	PrinterForRepair   PrinterStatus = "for_repair"
	PrinterUnknown     PrinterStatus = "unknown"
	PrinterRetired     PrinterStatus = "retired"
)

func (s PrinterStatus) Valid() bool {
	switch s {
	case PrinterAvailable, PrinterRented, PrinterDeployed, PrinterMaintenance,
		PrinterForRepair, PrinterUnknown, PrinterRetired:
		return true
	}
	return false
}

type Ownership string

const (
	OwnershipSystemAsset Ownership = "system_asset"
	OwnershipClientOwned Ownership = "client_owned"
)

func (o Ownership) Valid() bool {
	return o == OwnershipSystemAsset || o == OwnershipClientOwned
}

type TonerColor string

const (
	TonerBlack   TonerColor = "black"
	TonerCyan    TonerColor = "cyan"
	TonerMagenta TonerColor = "magenta"
	TonerYellow  TonerColor = "yellow"
)

func (c TonerColor) Valid() bool {
	switch c {
	case TonerBlack, TonerCyan, TonerMagenta, TonerYellow:
		return true
	}
	return false
}

type MaintenanceStatus string

const (
	MaintenancePending        MaintenanceStatus = "pending"
	MaintenanceInProgress     MaintenanceStatus = "in_progress"
	MaintenanceCompleted      MaintenanceStatus = "completed"
	MaintenanceUnrepairable   MaintenanceStatus = "unrepairable"
	MaintenanceDecommissioned MaintenanceStatus = "decommissioned"
)

func (s MaintenanceStatus) Valid() bool {
	switch s {
	case MaintenancePending, MaintenanceInProgress, MaintenanceCompleted,
		MaintenanceUnrepairable, MaintenanceDecommissioned:
		return true
	}
	return false
}

// PrinterStatus is the printer status implied by a maintenance record in this state.
// hasClient selects deployed over available once a repair completes.
func (s MaintenanceStatus) PrinterStatus(hasClient bool) PrinterStatus {
	switch s {
	case MaintenancePending:
		return PrinterForRepair
	case MaintenanceInProgress:
		return PrinterMaintenance
	case MaintenanceCompleted:
		if hasClient {
			return PrinterDeployed
		}
		return PrinterAvailable
	case MaintenanceUnrepairable, MaintenanceDecommissioned:
		return PrinterRetired
	}
	return PrinterUnknown
}

type RentalStatus string

const (
	RentalActive    RentalStatus = "active"
	RentalUpcoming  RentalStatus = "upcoming"
	RentalCompleted RentalStatus = "completed"
	RentalCancelled RentalStatus = "cancelled"
)

func (s RentalStatus) Valid() bool {
	switch s {
	case RentalActive, RentalUpcoming, RentalCompleted, RentalCancelled:
		return true
	}
	return false
}
