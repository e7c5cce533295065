// Package feed turns supplier XML feeds into normalized room records.
//
// Parser is a streaming pull parser: it reads tokens from the underlying
// reader on demand and holds only the room currently being assembled, so
// bulk multi-hotel feeds never sit in memory. Two tag vocabularies are
// recognized and may be mixed within one document:
//
//	<Hotel HotelCode="H1"><Room id="R1" name="Deluxe" maxOccupancy="2">…</Room></Hotel>
//	<HotelDescriptiveContent HotelCode="H1"><GuestRoom RoomTypeCode="DK" roomTypeName="Deluxe">…</GuestRoom></HotelDescriptiveContent>
//
// NormalizeBedType and MapAmenity fold free supplier vocabulary onto closed
// enumerations and never fail. Score computes the completeness of a room.
package feed
