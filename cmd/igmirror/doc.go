// Command igmirror links an Instagram account, keeps its long-lived access
// token fresh, and mirrors the account's recent media into a local cache.
//
// Typical first run:
//
//	igmirror config init
//	igmirror auth url            # open the printed URL and approve access
//	igmirror auth exchange CODE  # CODE from the redirect URI
//	igmirror media fetch --count 20
//
// "media fetch" refreshes the token when it is 60 days old, so running it
// from cron keeps the link alive indefinitely.
package main
