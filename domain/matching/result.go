package matching

// OrderMatchingResult is the synchronous answer to AddOrder. Anything
// past validation is OrderAccepted; what happens to the order afterwards
// is reported through the Listener.
type OrderMatchingResult uint8

const (
	OrderAccepted OrderMatchingResult = iota + 1
	InvalidPriceQuantityStopPriceOrderAmount
	InvalidMarketOrderAmount
	BookOrCancelCannotBeMarketOrStopOrder
	ImmediateOrCancelCannotBeStopOrder
	FillOrKillCannotBeStopOrder
	InvalidCancelOnForGTD
	GoodTillDateCannotBeIOCorFOK
	IcebergOrderCannotBeFOKorIOC
	IcebergOrderCannotBeStopOrMarketOrder
	InvalidIcebergOrderTotalQuantity
	DuplicateOrder
)

var matchingResultNames = map[OrderMatchingResult]string{
	OrderAccepted:                            "ORDER_ACCEPTED",
	InvalidPriceQuantityStopPriceOrderAmount: "INVALID_PRICE_QUANTITY_STOP_PRICE_ORDER_AMOUNT",
	InvalidMarketOrderAmount:                 "INVALID_MARKET_ORDER_AMOUNT",
	BookOrCancelCannotBeMarketOrStopOrder:    "BOOK_OR_CANCEL_CANNOT_BE_MARKET_OR_STOP_ORDER",
	ImmediateOrCancelCannotBeStopOrder:       "IMMEDIATE_OR_CANCEL_CANNOT_BE_STOP_ORDER",
	FillOrKillCannotBeStopOrder:              "FILL_OR_KILL_CANNOT_BE_STOP_ORDER",
	InvalidCancelOnForGTD:                    "INVALID_CANCEL_ON_FOR_GTD",
	GoodTillDateCannotBeIOCorFOK:             "GOOD_TILL_DATE_CANNOT_BE_IOC_OR_FOK",
	IcebergOrderCannotBeFOKorIOC:             "ICEBERG_ORDER_CANNOT_BE_FOK_OR_IOC",
	IcebergOrderCannotBeStopOrMarketOrder:    "ICEBERG_ORDER_CANNOT_BE_STOP_OR_MARKET_ORDER",
	InvalidIcebergOrderTotalQuantity:         "INVALID_ICEBERG_ORDER_TOTAL_QUANTITY",
	DuplicateOrder:                           "DUPLICATE_ORDER",
}

func (r OrderMatchingResult) String() string {
	if s, ok := matchingResultNames[r]; ok {
		return s
	}
	return "UNKNOWN"
}

type CancelOrderResult uint8

const (
	CancelAccepted CancelOrderResult = iota + 1
	OrderDoesNotExist
)

func (r CancelOrderResult) String() string {
	switch r {
	case CancelAccepted:
		return "CANCEL_ACCEPTED"
	case OrderDoesNotExist:
		return "ORDER_DOES_NOT_EXIST"
	default:
		return "UNKNOWN"
	}
}

// CancelReason says why an accepted order left the book without filling.
type CancelReason uint8

const (
	UserRequested CancelReason = iota + 1
	MarketOrderNoLiquidity
	ImmediateOrCancel
	FillOrKill
	BookOrCancel
	ValidityExpired
	LessThanStepSize
)

var cancelReasonNames = map[CancelReason]string{
	UserRequested:          "USER_REQUESTED",
	MarketOrderNoLiquidity: "MARKET_ORDER_NO_LIQUIDITY",
	ImmediateOrCancel:      "IMMEDIATE_OR_CANCEL",
	FillOrKill:             "FILL_OR_KILL",
	BookOrCancel:           "BOOK_OR_CANCEL",
	ValidityExpired:        "VALIDITY_EXPIRED",
	LessThanStepSize:       "LESS_THAN_STEP_SIZE",
}

func (r CancelReason) String() string {
	if s, ok := cancelReasonNames[r]; ok {
		return s
	}
	return "UNKNOWN"
}

// SelfMatchAction names what happens when both sides of a trade belong to
// the same user. Only SelfMatchMatch is implemented.
type SelfMatchAction uint8

const (
	SelfMatchMatch SelfMatchAction = iota
	SelfMatchCancelNewest
	SelfMatchCancelOldest
	SelfMatchDecrement
)

func (a SelfMatchAction) String() string {
	switch a {
	case SelfMatchMatch:
		return "MATCH"
	case SelfMatchCancelNewest:
		return "CANCEL_NEWEST"
	case SelfMatchCancelOldest:
		return "CANCEL_OLDEST"
	case SelfMatchDecrement:
		return "DECREMENT"
	default:
		return "UNKNOWN"
	}
}

// ParseSelfMatchAction is the inverse of String.
func ParseSelfMatchAction(s string) (SelfMatchAction, bool) {
	for a := SelfMatchMatch; a <= SelfMatchDecrement; a++ {
		if a.String() == s {
			return a, true
		}
	}
	return 0, false
}
