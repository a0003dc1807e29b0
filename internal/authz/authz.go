package authz

// Roles form a closed set. There is no dynamic role/permission table; the
// gate below is a pure function of (role, operation).
const (
	RoleAdmin         = "admin"
	RoleSales         = "sales"
	RoleSalesVehicles = "sales_vehicles"
	RoleConsignerOps  = "consigner_ops"
	RoleVehicleOps    = "vehicle_ops"
	RoleAccounts      = "accounts"
)

// Operation identifies a gated API operation.
type Operation string

const (
	OpTripCreate        Operation = "trip.create"
	OpTripEdit          Operation = "trip.edit"
	OpTripQuote         Operation = "trip.quote"
	OpTripConfirm       Operation = "trip.confirm"
	OpTripAssignVehicle Operation = "trip.assign_vehicle"
	OpTripAtLoading     Operation = "trip.at_loading"
	OpTripLoadingDocs   Operation = "trip.loading_docs_ok"
	OpTripAdvancePaid   Operation = "trip.advance_paid"
	OpTripStartTransit  Operation = "trip.start_transit"
	OpTripDelivered     Operation = "trip.delivered"
	OpTripPODReceived   Operation = "trip.pod_received"
	OpTripVendorSettle  Operation = "trip.vendor_settled"
	OpTripCollect       Operation = "trip.customer_collected"
	OpTripClose         Operation = "trip.close"
	OpTripRead          Operation = "trip.read"
	OpProofUpload       Operation = "trip.proof_upload"

	OpPaymentCreate   Operation = "payment.create"
	OpPaymentReview   Operation = "payment.review"
	OpPaymentMarkPaid Operation = "payment.mark_paid"
	OpPaymentRead     Operation = "payment.read"

	OpTicketCreate Operation = "ticket.create"
	OpTicketUpdate Operation = "ticket.update"
	OpTicketRead   Operation = "ticket.read"

	OpAuditRead   Operation = "audit.read"
	OpUserManage  Operation = "user.manage"
	OpFleetManage Operation = "fleet.manage"
	OpFleetRead   Operation = "fleet.read"
	OpStatsRead   Operation = "stats.read"
)

var allRoles = []string{
	RoleAdmin, RoleSales, RoleSalesVehicles,
	RoleConsignerOps, RoleVehicleOps, RoleAccounts,
}

// allowTable declares, per operation, the roles permitted to invoke it. Admin
// is implicitly permitted everywhere. Ownership side-channels (a requester
// editing their own trip request) are enforced in the services on top of this.
var allowTable = map[Operation][]string{
	OpTripCreate:        {RoleSales, RoleConsignerOps},
	OpTripEdit:          {RoleSales, RoleConsignerOps},
	OpTripQuote:         {RoleSales},
	OpTripConfirm:       {RoleConsignerOps},
	OpTripAssignVehicle: {RoleVehicleOps},
	OpTripAtLoading:     {RoleConsignerOps, RoleVehicleOps},
	OpTripLoadingDocs:   {RoleConsignerOps, RoleVehicleOps},
	OpTripAdvancePaid:   {RoleAccounts},
	OpTripStartTransit:  {RoleConsignerOps, RoleVehicleOps},
	OpTripDelivered:     {RoleConsignerOps, RoleVehicleOps},
	OpTripPODReceived:   {RoleConsignerOps},
	OpTripVendorSettle:  {RoleAccounts},
	OpTripCollect:       {RoleAccounts},
	OpTripClose:         {RoleAccounts},
	OpTripRead:          allRoles,
	OpProofUpload:       {RoleConsignerOps, RoleVehicleOps},

	OpPaymentCreate:   {RoleConsignerOps, RoleVehicleOps},
	OpPaymentReview:   {RoleAccounts},
	OpPaymentMarkPaid: {RoleAccounts},
	OpPaymentRead:     {RoleSales, RoleConsignerOps, RoleVehicleOps, RoleAccounts},

	OpTicketCreate: allRoles,
	OpTicketUpdate: allRoles,
	OpTicketRead:   allRoles,

	OpAuditRead:   {RoleAccounts},
	OpUserManage:  {},
	OpFleetManage: {RoleVehicleOps, RoleSalesVehicles},
	OpFleetRead:   allRoles,
	OpStatsRead:   allRoles,
}

// ValidRole reports membership in the closed role set.
func ValidRole(role string) bool {
	for _, r := range allRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Roles returns the closed role set.
func Roles() []string {
	out := make([]string, len(allRoles))
	copy(out, allRoles)
	return out
}

// Operations returns every gated operation.
func Operations() []Operation {
	out := make([]Operation, 0, len(allowTable))
	for op := range allowTable {
		out = append(out, op)
	}
	return out
}

// Allowed is the authorization gate: a pure (role, operation) -> bool check.
// Unknown roles and unknown operations are always denied.
func Allowed(role string, op Operation) bool {
	if !ValidRole(role) {
		return false
	}
	allowed, ok := allowTable[op]
	if !ok {
		return false
	}
	if role == RoleAdmin {
		return true
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
