package wire

import (
	"matchbook/domain/types"
)

type MessageType uint8

const (
	TypeNewOrderRequest MessageType = iota + 1
	TypeCancelRequest
	TypeBookRequest
	TypeFill
	TypeCancel
	TypeBook
	TypeOrderTrigger
	TypeOrderAccept
)

func (t MessageType) String() string {
	switch t {
	case TypeNewOrderRequest:
		return "NewOrderRequest"
	case TypeCancelRequest:
		return "CancelRequest"
	case TypeBookRequest:
		return "BookRequest"
	case TypeFill:
		return "Fill"
	case TypeCancel:
		return "Cancel"
	case TypeBook:
		return "Book"
	case TypeOrderTrigger:
		return "OrderTrigger"
	case TypeOrderAccept:
		return "OrderAccept"
	default:
		return "Unknown"
	}
}

// Message is one of the eight wire messages.
type Message interface {
	Type() MessageType
}

type NewOrderRequest struct {
	OrderID       types.OrderID
	UserID        types.UserID
	IsBuy         bool
	Price         types.Price
	Quantity      types.Quantity
	StopPrice     types.Price
	OrderAmount   types.Amount
	TotalQuantity types.Quantity
	CancelOn      int64
	Condition     uint8
	FeeID         types.FeeID
}

type CancelRequest struct {
	OrderID types.OrderID
}

type BookRequest struct {
	LevelCount int32
}

type Fill struct {
	MakerOrderID  types.OrderID
	TakerOrderID  types.OrderID
	MakerUserID   types.UserID
	TakerUserID   types.UserID
	IncomingIsBuy bool
	MatchPrice    types.Price
	MatchQuantity types.Quantity

	AskRemainingQuantity *types.Quantity
	AskFee               *types.Amount
	BidCost              *types.Amount
	BidFee               *types.Amount

	Timestamp int64
}

type Cancel struct {
	OrderID           types.OrderID
	UserID            types.UserID
	RemainingQuantity types.Quantity
	Cost              types.Amount
	Fee               types.Amount
	Reason            uint8
	Timestamp         int64
}

type BookLevel struct {
	Price    types.Price
	Quantity types.Quantity
}

type Book struct {
	Timestamp       int64
	LastTradedPrice types.Price
	Bids            []BookLevel
	Asks            []BookLevel
}

type OrderTrigger struct {
	OrderID   types.OrderID
	UserID    types.UserID
	Timestamp int64
}

type OrderAccept struct {
	OrderID   types.OrderID
	UserID    types.UserID
	Timestamp int64
}

func (*NewOrderRequest) Type() MessageType { return TypeNewOrderRequest }
func (*CancelRequest) Type() MessageType   { return TypeCancelRequest }
func (*BookRequest) Type() MessageType     { return TypeBookRequest }
func (*Fill) Type() MessageType            { return TypeFill }
func (*Cancel) Type() MessageType          { return TypeCancel }
func (*Book) Type() MessageType            { return TypeBook }
func (*OrderTrigger) Type() MessageType    { return TypeOrderTrigger }
func (*OrderAccept) Type() MessageType     { return TypeOrderAccept }
