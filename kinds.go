package gatewire

import "github.com/quantrail/gatewire/internal/protocol"

// OutgoingKind identifies a client-to-gateway message family.
type OutgoingKind = protocol.OutgoingKind

// IncomingKind identifies a gateway-to-client message family.
type IncomingKind = protocol.IncomingKind

const (
	OutReqMktData        = protocol.OutReqMktData
	OutCancelMktData     = protocol.OutCancelMktData
	OutPlaceOrder        = protocol.OutPlaceOrder
	OutCancelOrder       = protocol.OutCancelOrder
	OutReqOpenOrders     = protocol.OutReqOpenOrders
	OutReqAccountUpdates = protocol.OutReqAccountUpdates
	OutReqExecutions     = protocol.OutReqExecutions
	OutReqIDs            = protocol.OutReqIDs
	OutReqContractData   = protocol.OutReqContractData
	OutReqMktDepth       = protocol.OutReqMktDepth
	OutCancelMktDepth    = protocol.OutCancelMktDepth
	OutReqManagedAccts   = protocol.OutReqManagedAccts
	OutReqHistoricalData = protocol.OutReqHistoricalData
	OutReqCurrentTime    = protocol.OutReqCurrentTime
	OutReqMarketDataType = protocol.OutReqMarketDataType
	OutReqPositions      = protocol.OutReqPositions
	OutCancelPositions   = protocol.OutCancelPositions
	OutReqPositionsMulti = protocol.OutReqPositionsMulti
	OutReqFamilyCodes    = protocol.OutReqFamilyCodes
	OutReqMktDepthExchgs = protocol.OutReqMktDepthExchgs
	OutReqMarketRule     = protocol.OutReqMarketRule
	OutReqTickByTick     = protocol.OutReqTickByTick
	OutCancelTickByTick  = protocol.OutCancelTickByTick

	InTickPrice         = protocol.InTickPrice
	InTickSize          = protocol.InTickSize
	InOrderStatus       = protocol.InOrderStatus
	InErrorMessage      = protocol.InErrorMessage
	InOpenOrder         = protocol.InOpenOrder
	InAccountValue      = protocol.InAccountValue
	InPortfolioValue    = protocol.InPortfolioValue
	InAccountUpdateTime = protocol.InAccountUpdateTime
	InNextValidID       = protocol.InNextValidID
	InContractData      = protocol.InContractData
	InExecutionData     = protocol.InExecutionData
	InMarketDepth       = protocol.InMarketDepth
	InManagedAccts      = protocol.InManagedAccts
	InCurrentTime       = protocol.InCurrentTime
	InContractDataEnd   = protocol.InContractDataEnd
	InOpenOrderEnd      = protocol.InOpenOrderEnd
	InAcctDownloadEnd   = protocol.InAcctDownloadEnd
	InExecutionDataEnd  = protocol.InExecutionDataEnd
	InTickSnapshotEnd   = protocol.InTickSnapshotEnd
	InMarketDataType    = protocol.InMarketDataType
	InPosition          = protocol.InPosition
	InPositionEnd       = protocol.InPositionEnd
	InFamilyCodes       = protocol.InFamilyCodes
	InMktDepthExchanges = protocol.InMktDepthExchanges
	InMarketRule        = protocol.InMarketRule
	InTickByTick        = protocol.InTickByTick
)
