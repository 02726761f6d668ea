// Package instagram talks to the Instagram OAuth and Graph hosts.
//
// AuthController owns the long-lived access token: it exchanges an
// authorization code for a short-lived token (form POST through
// golang.org/x/oauth2), upgrades it to a long-lived token, persists it in a
// kvstore.Store under instagram_access_token and instagram_token_updated, and
// refreshes it once the stored timestamp is 60 days old.
//
// MediaRetriever lists the account's recent media and mirrors each binary into
// a mediacache.Cache. Files already present in the cache are never downloaded
// again, and a failed download leaves no partial file behind.
//
// Both types report failures as Go errors. Remote error envelopes decode into
// *APIError; the remaining conditions use the exported sentinels.
package instagram
