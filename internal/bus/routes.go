package bus

import "github.com/quantrail/gatewire/internal/protocol"

// Route binds a request kind that carries no caller request id to the reply
// kinds the gateway answers it with. Terminal names the end sentinel closing
// one round of the stream, zero when the stream has none.
type Route struct {
	Request  protocol.OutgoingKind
	Replies  []protocol.IncomingKind
	Terminal protocol.IncomingKind
}

// sharedRoutes is the static channel table, built once at startup. Kinds that
// also appear in the request-id index lose the tie-break: id routing wins and
// these entries only catch frames with no matching id channel.
var sharedRoutes = []Route{
	{Request: protocol.OutReqIDs, Replies: []protocol.IncomingKind{protocol.InNextValidID}, Terminal: protocol.InNextValidID},
	{Request: protocol.OutReqManagedAccts, Replies: []protocol.IncomingKind{protocol.InManagedAccts}, Terminal: protocol.InManagedAccts},
	{Request: protocol.OutReqCurrentTime, Replies: []protocol.IncomingKind{protocol.InCurrentTime}, Terminal: protocol.InCurrentTime},
	{Request: protocol.OutReqFamilyCodes, Replies: []protocol.IncomingKind{protocol.InFamilyCodes}, Terminal: protocol.InFamilyCodes},
	{Request: protocol.OutReqMarketRule, Replies: []protocol.IncomingKind{protocol.InMarketRule}, Terminal: protocol.InMarketRule},
	{Request: protocol.OutReqMktDepthExchgs, Replies: []protocol.IncomingKind{protocol.InMktDepthExchanges}, Terminal: protocol.InMktDepthExchanges},
	{Request: protocol.OutReqMarketDataType, Replies: []protocol.IncomingKind{protocol.InMarketDataType}},
	{Request: protocol.OutReqPositions, Replies: []protocol.IncomingKind{protocol.InPosition, protocol.InPositionEnd}, Terminal: protocol.InPositionEnd},
	{Request: protocol.OutReqPositionsMulti, Replies: []protocol.IncomingKind{protocol.InPositionMulti, protocol.InPositionMultiEnd}, Terminal: protocol.InPositionMultiEnd},
	{Request: protocol.OutReqOpenOrders, Replies: []protocol.IncomingKind{protocol.InOpenOrder, protocol.InOrderStatus, protocol.InOpenOrderEnd}, Terminal: protocol.InOpenOrderEnd},
	{Request: protocol.OutReqAccountUpdates, Replies: []protocol.IncomingKind{protocol.InAccountValue, protocol.InPortfolioValue, protocol.InAccountUpdateTime, protocol.InAcctDownloadEnd}, Terminal: protocol.InAcctDownloadEnd},
	// broadcast notices: gateway errors and status text with no usable id
	{Request: 0, Replies: []protocol.IncomingKind{protocol.InErrorMessage}},
}

// RouteFor returns the shared route for a request kind.
func RouteFor(kind protocol.OutgoingKind) (Route, bool) {
	for _, r := range sharedRoutes {
		if r.Request == kind {
			return r, true
		}
	}
	return Route{}, false
}
