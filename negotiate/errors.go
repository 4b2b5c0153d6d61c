// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package negotiate

import "errors"

var (
	// ErrProtocol marks a malformed or unexpected handshake message.
	ErrProtocol = errors.New("negotiate: protocol error")

	// ErrOfferListTooLarge is returned when a ClientOffer carries more
	// than the configured OfferListMax offers.
	ErrOfferListTooLarge = errors.New("negotiate: offer list too large")

	// ErrTransportClosed marks a dead underlying raw connection.
	ErrTransportClosed = errors.New("negotiate: transport closed")
)
