package record

// Payload is the tagged-union member for a record's type-specific data.
// Each known record type has a typed payload struct; OpaquePayload is the
// catch-all variant that preserves raw fields for record types a node does
// not yet recognize, keeping id derivation forward-compatible (design note
// in spec §9: "dynamic record payloads become a tagged union... plus an
// opaque variant preserving raw canonical bytes for unknown future types").
type Payload interface {
	payloadType() Type
}

// OpaquePayload carries an arbitrary field set for a record type this
// build does not define a struct for. Canonicalization operates on the raw
// map, so ids derived by newer and older nodes for the same bytes agree.
type OpaquePayload map[string]interface{}

func (OpaquePayload) payloadType() Type { return "" }

// AgentOnlinePayload announces an agent's presence and capabilities.
type AgentOnlinePayload struct {
	Endpoint     string   `json:"endpoint,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

func (AgentOnlinePayload) payloadType() Type { return TypeAgentOnline }

// AgentOfflinePayload announces a graceful departure.
type AgentOfflinePayload struct {
	Reason string `json:"reason,omitempty"`
}

func (AgentOfflinePayload) payloadType() Type { return TypeAgentOffline }

// TaskPostedPayload is the task.posted payload: the root of a task's
// lineage.
type TaskPostedPayload struct {
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	Requirements []string `json:"requirements,omitempty"`
	BudgetXMR    string   `json:"budget_xmr"`
	TrustTier    int      `json:"trust_tier"`
	DeadlineUnix int64    `json:"deadline"`
}

func (TaskPostedPayload) payloadType() Type { return TypeTaskPosted }

// TaskBidPayload is the private task.bid payload.
type TaskBidPayload struct {
	TaskID            string `json:"task_id"`
	PriceXMR          string `json:"price_xmr"`
	EstimatedSeconds  int    `json:"estimated_seconds"`
	Confidence        float64 `json:"confidence"`
}

func (TaskBidPayload) payloadType() Type { return TypeTaskBid }

// TaskCounterPayload is a private negotiation counter-offer.
type TaskCounterPayload struct {
	TaskID   string `json:"task_id"`
	PriceXMR string `json:"price_xmr"`
	Round    int    `json:"round"`
}

func (TaskCounterPayload) payloadType() Type { return TypeTaskCounter }

// TaskAcceptPayload is a private negotiation acceptance.
type TaskAcceptPayload struct {
	TaskID   string `json:"task_id"`
	PriceXMR string `json:"price_xmr"`
}

func (TaskAcceptPayload) payloadType() Type { return TypeTaskAccept }

// TaskAssignedPayload records the poster's assignment decision.
type TaskAssignedPayload struct {
	TaskID   string `json:"task_id"`
	BidID    string `json:"bid_id"`
	Executor string `json:"executor"`
	EscrowID string `json:"escrow_id"`
	PriceXMR string `json:"price_xmr"`
}

func (TaskAssignedPayload) payloadType() Type { return TypeTaskAssigned }

// TaskDeliverPayload is the private delivery of a result to the poster.
type TaskDeliverPayload struct {
	TaskID     string `json:"task_id"`
	ResultHash string `json:"result_hash"`
}

func (TaskDeliverPayload) payloadType() Type { return TypeTaskDeliver }

// TaskCompletedPayload is the public record of a completed execution.
type TaskCompletedPayload struct {
	TaskID     string `json:"task_id"`
	ResultHash string `json:"result_hash"`
}

func (TaskCompletedPayload) payloadType() Type { return TypeTaskCompleted }

// TaskFailedPayload records a failed execution or verification outcome.
type TaskFailedPayload struct {
	TaskID string `json:"task_id"`
	Reason string `json:"reason"`
}

func (TaskFailedPayload) payloadType() Type { return TypeTaskFailed }

// TaskVerifiedPayload is the verifier's outcome for a completed task.
type TaskVerifiedPayload struct {
	TaskID string  `json:"task_id"`
	Passed bool    `json:"passed"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason,omitempty"`
}

func (TaskVerifiedPayload) payloadType() Type { return TypeTaskVerified }

// TaskSettledPayload is the poster's settlement record.
type TaskSettledPayload struct {
	TaskID    string `json:"task_id"`
	AmountXMR string `json:"amount_xmr"`
	ClaimTx   string `json:"claim_tx"`
}

func (TaskSettledPayload) payloadType() Type { return TypeTaskSettled }

// ReputationAttestationPayload rates a counterparty after a task lineage.
type ReputationAttestationPayload struct {
	TaskID        string  `json:"task_id"`
	Target        string  `json:"target"`
	Quality       float64 `json:"quality"`
	Speed         float64 `json:"speed"`
	Communication float64 `json:"communication"`
}

func (ReputationAttestationPayload) payloadType() Type { return TypeReputationAttestation }

// SpawnNewPayload announces a newly provisioned child agent.
type SpawnNewPayload struct {
	ParentAgent string `json:"parent_agent"`
	ChildDID    string `json:"child_did"`
}

func (SpawnNewPayload) payloadType() Type { return TypeSpawnNew }

// SpawnDeadPayload announces the termination of a child agent.
type SpawnDeadPayload struct {
	ChildDID string `json:"child_did"`
	Reason   string `json:"reason,omitempty"`
}

func (SpawnDeadPayload) payloadType() Type { return TypeSpawnDead }

// ContentPublishedPayload announces content produced by an agent.
type ContentPublishedPayload struct {
	ContentHash string `json:"content_hash"`
	MimeType    string `json:"mime_type,omitempty"`
	URI         string `json:"uri,omitempty"`
}

func (ContentPublishedPayload) payloadType() Type { return TypeContentPublished }

// TaskFlagPayload is a community flag against a target agent or task.
type TaskFlagPayload struct {
	Target string `json:"target"`
	TaskID string `json:"task_id,omitempty"`
	Reason string `json:"reason"`
}

func (TaskFlagPayload) payloadType() Type { return TypeTaskFlag }

// GovernanceActionPayload carries a multisig-verified governance action.
// The same shape serves warn, suspend, and kill; DurationSeconds is only
// meaningful for suspend (0 means indefinite).
type GovernanceActionPayload struct {
	Action          string            `json:"action"`
	Target          string            `json:"target"`
	DurationSeconds int64             `json:"duration_seconds,omitempty"`
	Signatures      map[string]string `json:"signatures"`
}

func (p GovernanceActionPayload) payloadType() Type {
	switch p.Action {
	case "suspend":
		return TypeGovernanceSuspend
	case "kill":
		return TypeGovernanceKill
	default:
		return TypeGovernanceWarn
	}
}

// EscrowCoordinatePayload is private inter-peer escrow coordination
// (funding notices, verifier assignment, dispute signaling).
type EscrowCoordinatePayload struct {
	EscrowID string `json:"escrow_id"`
	TaskID   string `json:"task_id"`
	Step     string `json:"step"`
	Detail   string `json:"detail,omitempty"`
}

func (EscrowCoordinatePayload) payloadType() Type { return TypeEscrowCoordinate }
