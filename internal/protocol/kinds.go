package protocol

// OutgoingKind identifies a client-to-gateway message family.
type OutgoingKind int64

const (
	OutReqMktData          OutgoingKind = 1
	OutCancelMktData       OutgoingKind = 2
	OutPlaceOrder          OutgoingKind = 3
	OutCancelOrder         OutgoingKind = 4
	OutReqOpenOrders       OutgoingKind = 5
	OutReqAccountUpdates   OutgoingKind = 6
	OutReqExecutions       OutgoingKind = 7
	OutReqIDs              OutgoingKind = 8
	OutReqContractData     OutgoingKind = 9
	OutReqMktDepth         OutgoingKind = 10
	OutCancelMktDepth      OutgoingKind = 11
	OutReqManagedAccts     OutgoingKind = 17
	OutReqHistoricalData   OutgoingKind = 20
	OutCancelHistoricalDat OutgoingKind = 25
	OutReqCurrentTime      OutgoingKind = 49
	OutReqMarketDataType   OutgoingKind = 59
	OutReqPositions        OutgoingKind = 61
	OutReqAccountSummary   OutgoingKind = 62
	OutCancelAcctSummary   OutgoingKind = 63
	OutCancelPositions     OutgoingKind = 64
	OutStartAPI            OutgoingKind = 71
	OutReqPositionsMulti   OutgoingKind = 74
	OutCancelPositionsMult OutgoingKind = 75
	OutReqFamilyCodes      OutgoingKind = 80
	OutReqMktDepthExchgs   OutgoingKind = 82
	OutReqMarketRule       OutgoingKind = 91
	OutReqTickByTick       OutgoingKind = 97
	OutCancelTickByTick    OutgoingKind = 98
)

// IncomingKind identifies a gateway-to-client message family.
type IncomingKind int64

const (
	InTickPrice         IncomingKind = 1
	InTickSize          IncomingKind = 2
	InOrderStatus       IncomingKind = 3
	InErrorMessage      IncomingKind = 4
	InOpenOrder         IncomingKind = 5
	InAccountValue      IncomingKind = 6
	InPortfolioValue    IncomingKind = 7
	InAccountUpdateTime IncomingKind = 8
	InNextValidID       IncomingKind = 9
	InContractData      IncomingKind = 10
	InExecutionData     IncomingKind = 11
	InMarketDepth       IncomingKind = 12
	InMarketDepthL2     IncomingKind = 13
	InManagedAccts      IncomingKind = 15
	InHistoricalData    IncomingKind = 17
	InCurrentTime       IncomingKind = 49
	InContractDataEnd   IncomingKind = 52
	InOpenOrderEnd      IncomingKind = 53
	InAcctDownloadEnd   IncomingKind = 54
	InExecutionDataEnd  IncomingKind = 55
	InTickSnapshotEnd   IncomingKind = 57
	InMarketDataType    IncomingKind = 58
	InPosition          IncomingKind = 61
	InPositionEnd       IncomingKind = 62
	InAccountSummary    IncomingKind = 63
	InAccountSummaryEnd IncomingKind = 64
	InPositionMulti     IncomingKind = 71
	InPositionMultiEnd  IncomingKind = 72
	InFamilyCodes       IncomingKind = 78
	InMktDepthExchanges IncomingKind = 80
	InMarketRule        IncomingKind = 93
	InHistoricalTicks   IncomingKind = 98
	InTickByTick        IncomingKind = 99
)

// requestIDIndex maps id-carrying incoming kinds to the payload field offset
// of the request id, counting the kind field as offset 0.
var requestIDIndex = map[IncomingKind]int{
	InOrderStatus:       1,
	InOpenOrder:         1,
	InErrorMessage:      2,
	InTickPrice:         2,
	InTickSize:          2,
	InContractData:      2,
	InContractDataEnd:   2,
	InExecutionData:     2,
	InExecutionDataEnd:  2,
	InMarketDepth:       2,
	InMarketDepthL2:     2,
	InHistoricalData:    2,
	InTickSnapshotEnd:   2,
	InAccountSummary:    2,
	InAccountSummaryEnd: 2,
	InPositionMulti:     2,
	InPositionMultiEnd:  2,
	InHistoricalTicks:   1,
	InTickByTick:        1,
}

// RequestIDIndex reports where kind carries its request id, if it does.
func RequestIDIndex(kind IncomingKind) (int, bool) {
	idx, ok := requestIDIndex[kind]
	return idx, ok
}

// terminalKinds are the end sentinels that complete a streamed reply.
var terminalKinds = map[IncomingKind]bool{
	InContractDataEnd:   true,
	InExecutionDataEnd:  true,
	InOpenOrderEnd:      true,
	InAcctDownloadEnd:   true,
	InTickSnapshotEnd:   true,
	InPositionEnd:       true,
	InAccountSummaryEnd: true,
	InPositionMultiEnd:  true,
}

// Terminal reports whether kind closes the stream it belongs to.
func Terminal(kind IncomingKind) bool {
	return terminalKinds[kind]
}

// cancelKinds maps a subscribing request kind to its cancel counterpart.
var cancelKinds = map[OutgoingKind]OutgoingKind{
	OutReqMktData:        OutCancelMktData,
	OutReqMktDepth:       OutCancelMktDepth,
	OutReqHistoricalData: OutCancelHistoricalDat,
	OutReqPositions:      OutCancelPositions,
	OutReqPositionsMulti: OutCancelPositionsMult,
	OutReqAccountSummary: OutCancelAcctSummary,
	OutReqTickByTick:     OutCancelTickByTick,
}

// CancelKind returns the cancel counterpart for a subscribing request kind.
func CancelKind(kind OutgoingKind) (OutgoingKind, bool) {
	c, ok := cancelKinds[kind]
	return c, ok
}
