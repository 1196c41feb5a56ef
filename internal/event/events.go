package event

import (
	"github.com/ethereum/go-ethereum/common"
)

// Audit events emitted by the settlement core. Every event carries the
// call-correlation id of the entry point that produced it, so the
// multi-event operations (startOrder emits up to four) can be stitched
// back together from the audit log.

// Type defines the type of event.
type Type uint16

const (
	EvOrderStarted Type = iota + 1
	EvOrderReused
	EvOrderExecuted
	EvPublishMarketFee
	EvConsumeMarketFee
	EvProviderFee
	EvRoleGranted
	EvRoleRevoked
	EvPaymentCollectorChanged
	EvPublishFeeChanged
	EvFixedRateCreated
	EvDispenserCreated
	EvCleanedPermissions
	EvApproval
)

var typeNames = map[Type]string{
	EvOrderStarted:            "OrderStarted",
	EvOrderReused:             "OrderReused",
	EvOrderExecuted:           "OrderExecuted",
	EvPublishMarketFee:        "PublishMarketFee",
	EvConsumeMarketFee:        "ConsumeMarketFee",
	EvProviderFee:             "ProviderFee",
	EvRoleGranted:             "RoleGranted",
	EvRoleRevoked:             "RoleRevoked",
	EvPaymentCollectorChanged: "PaymentCollectorChanged",
	EvPublishFeeChanged:       "PublishFeeChanged",
	EvFixedRateCreated:        "FixedRateCreated",
	EvDispenserCreated:        "DispenserCreated",
	EvCleanedPermissions:      "CleanedPermissions",
	EvApproval:                "Approval",
}

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return "Unknown"
}

// Event is the interface for all audit events.
type Event interface {
	GetSeq() uint64
	GetTs() int64
	GetType() Type
	GetCallID() string
}

// BaseEvent contains common fields for all events. Seq is assigned by
// the emitter when the enclosing call commits; Ts is unix microseconds.
type BaseEvent struct {
	Seq    uint64 `json:"seq"`
	Ts     int64  `json:"ts"`
	CallID string `json:"call_id"`
}

func (e BaseEvent) GetSeq() uint64    { return e.Seq }
func (e BaseEvent) GetTs() int64      { return e.Ts }
func (e BaseEvent) GetCallID() string { return e.CallID }

// OrderStarted records a consumption order: one unit burned, fees
// settled. Emitted before any fund movement of the same call.
type OrderStarted struct {
	BaseEvent
	Consumer     common.Address `json:"consumer"`
	Payer        common.Address `json:"payer"`
	Amount       string         `json:"amount"`
	ServiceIndex uint64         `json:"service_index"`
}

func (e OrderStarted) GetType() Type { return EvOrderStarted }

// OrderReused records renewed access against a prior order reference.
// The reference is audit-trail linkage only; it is not validated.
type OrderReused struct {
	BaseEvent
	OrderRef common.Hash    `json:"order_ref"`
	Caller   common.Address `json:"caller"`
}

func (e OrderReused) GetType() Type { return EvOrderReused }

// OrderExecuted is the dual-signed proof-of-delivery record.
type OrderExecuted struct {
	BaseEvent
	OrderRef     common.Hash    `json:"order_ref"`
	Provider     common.Address `json:"provider"`
	Consumer     common.Address `json:"consumer"`
	ProviderData []byte         `json:"provider_data"`
	ProviderSig  []byte         `json:"provider_sig"`
	ConsumerData []byte         `json:"consumer_data"`
	ConsumerSig  []byte         `json:"consumer_sig"`
}

func (e OrderExecuted) GetType() Type { return EvOrderExecuted }

// PublishMarketFee records a settled publish-market fee transfer.
type PublishMarketFee struct {
	BaseEvent
	Recipient common.Address `json:"recipient"`
	Token     common.Address `json:"token"`
	Amount    string         `json:"amount"`
}

func (e PublishMarketFee) GetType() Type { return EvPublishMarketFee }

// ConsumeMarketFee records a settled consume-market fee transfer.
type ConsumeMarketFee struct {
	BaseEvent
	Recipient common.Address `json:"recipient"`
	Token     common.Address `json:"token"`
	Amount    string         `json:"amount"`
}

func (e ConsumeMarketFee) GetType() Type { return EvConsumeMarketFee }

// ProviderFee records a provider-fee settlement. Emitted even when no
// funds move; ValidUntil is carried for downstream bookkeeping.
type ProviderFee struct {
	BaseEvent
	Recipient    common.Address `json:"recipient"`
	Token        common.Address `json:"token"`
	Amount       string         `json:"amount"`
	ProtocolCut  string         `json:"protocol_cut"`
	ValidUntil   string         `json:"valid_until"`
	ProviderData []byte         `json:"provider_data"`
}

func (e ProviderFee) GetType() Type { return EvProviderFee }

// RoleGranted records a role-set addition.
type RoleGranted struct {
	BaseEvent
	Role    string         `json:"role"`
	Subject common.Address `json:"subject"`
	Caller  common.Address `json:"caller"`
}

func (e RoleGranted) GetType() Type { return EvRoleGranted }

// RoleRevoked records a role-set removal.
type RoleRevoked struct {
	BaseEvent
	Role    string         `json:"role"`
	Subject common.Address `json:"subject"`
	Caller  common.Address `json:"caller"`
}

func (e RoleRevoked) GetType() Type { return EvRoleRevoked }

type PaymentCollectorChanged struct {
	BaseEvent
	Collector common.Address `json:"collector"`
	Caller    common.Address `json:"caller"`
}

func (e PaymentCollectorChanged) GetType() Type { return EvPaymentCollectorChanged }

type PublishFeeChanged struct {
	BaseEvent
	Recipient common.Address `json:"recipient"`
	Token     common.Address `json:"token"`
	Amount    string         `json:"amount"`
}

func (e PublishFeeChanged) GetType() Type { return EvPublishFeeChanged }

type FixedRateCreated struct {
	BaseEvent
	Exchange   common.Address `json:"exchange"`
	ExchangeID common.Hash    `json:"exchange_id"`
	WithMint   bool           `json:"with_mint"`
}

func (e FixedRateCreated) GetType() Type { return EvFixedRateCreated }

type DispenserCreated struct {
	BaseEvent
	Dispenser common.Address `json:"dispenser"`
	WithMint  bool           `json:"with_mint"`
}

func (e DispenserCreated) GetType() Type { return EvDispenserCreated }

// CleanedPermissions records a reconciliation sweep and the minter
// addresses preserved across it.
type CleanedPermissions struct {
	BaseEvent
	Caller    common.Address   `json:"caller"`
	Preserved []common.Address `json:"preserved"`
}

func (e CleanedPermissions) GetType() Type { return EvCleanedPermissions }

// Approval records a delegated-approval (permit) allowance grant.
type Approval struct {
	BaseEvent
	Owner   common.Address `json:"owner"`
	Spender common.Address `json:"spender"`
	Amount  string         `json:"amount"`
}

func (e Approval) GetType() Type { return EvApproval }
