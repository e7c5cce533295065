// Package events is the publish/subscribe channel the room catalog writes to
// after a transaction commits. Subscribers observe; they cannot fail or slow
// down the publisher.
package events
