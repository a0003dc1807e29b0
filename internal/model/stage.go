package model

// TripStage is the closed set of positions in a trip's lifecycle. The
// sequence is strictly linear; every transition endpoint names its target
// stage and requires the immediate predecessor.
type TripStage string

const (
	StageRequestReceived   TripStage = "request_received"
	StageQuoted            TripStage = "quoted"
	StageConfirmed         TripStage = "confirmed"
	StageVehicleAssigned   TripStage = "vehicle_assigned"
	StageAtLoading         TripStage = "at_loading"
	StageLoadedDocsOK      TripStage = "loaded_docs_ok"
	StageAdvancePaid       TripStage = "advance_paid"
	StageInTransit         TripStage = "in_transit"
	StageDelivered         TripStage = "delivered"
	StagePODSoftReceived   TripStage = "pod_soft_received"
	StageVendorSettled     TripStage = "vendor_settled"
	StageCustomerCollected TripStage = "customer_collected"
	StageClosed            TripStage = "closed"
)

// stageSequence fixes the lifecycle order. Index doubles as a comparable rank.
var stageSequence = []TripStage{
	StageRequestReceived,
	StageQuoted,
	StageConfirmed,
	StageVehicleAssigned,
	StageAtLoading,
	StageLoadedDocsOK,
	StageAdvancePaid,
	StageInTransit,
	StageDelivered,
	StagePODSoftReceived,
	StageVendorSettled,
	StageCustomerCollected,
	StageClosed,
}

var stageRank = func() map[TripStage]int {
	m := make(map[TripStage]int, len(stageSequence))
	for i, s := range stageSequence {
		m[s] = i
	}
	return m
}()

// stagePreconditionCode names the error raised when a transition is invoked
// from any stage other than its required predecessor.
var stagePreconditionCode = map[TripStage]string{
	StageQuoted:            "trip_not_request_received",
	StageConfirmed:         "trip_not_quoted",
	StageVehicleAssigned:   "trip_not_confirmed",
	StageAtLoading:         "trip_not_vehicle_assigned",
	StageLoadedDocsOK:      "trip_not_at_loading",
	StageAdvancePaid:       "trip_not_docs_ok",
	StageInTransit:         "trip_not_advance_paid",
	StageDelivered:         "trip_not_in_transit",
	StagePODSoftReceived:   "trip_not_delivered",
	StageVendorSettled:     "trip_not_pod_received",
	StageCustomerCollected: "trip_not_vendor_settled",
	StageClosed:            "trip_not_customer_collected",
}

// Valid reports whether s is a member of the closed stage set.
func (s TripStage) Valid() bool {
	_, ok := stageRank[s]
	return ok
}

// Rank returns the position of s in the lifecycle, -1 for unknown stages.
func (s TripStage) Rank() int {
	r, ok := stageRank[s]
	if !ok {
		return -1
	}
	return r
}

// Terminal reports whether s ends the lifecycle.
func (s TripStage) Terminal() bool {
	return s == StageClosed
}

// AtLeast reports whether s has reached stage other in the lifecycle.
func (s TripStage) AtLeast(other TripStage) bool {
	return s.Valid() && other.Valid() && s.Rank() >= other.Rank()
}

// Predecessor returns the stage a trip must be in before advancing to s.
// The initial stage has no predecessor.
func (s TripStage) Predecessor() (TripStage, bool) {
	r := s.Rank()
	if r <= 0 {
		return "", false
	}
	return stageSequence[r-1], true
}

// PreconditionCode names the error for invoking the transition into s from
// the wrong stage.
func (s TripStage) PreconditionCode() string {
	return stagePreconditionCode[s]
}

// Stages returns the lifecycle sequence in order.
func Stages() []TripStage {
	out := make([]TripStage, len(stageSequence))
	copy(out, stageSequence)
	return out
}
