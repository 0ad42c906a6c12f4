// Package platform turns chat platforms into message sources.
//
// Every platform implements the Source interface: a Fetch that returns the
// captured messages in chronological order. History platforms (discord,
// slack) page backward through the channel archive until the configured
// limit is reached. Live platforms (irc, twitch) stay connected for the
// configured duration and record what arrives. The demo platform generates
// a deterministic transcript with no network at all.
//
// Construction goes through New, which dispatches on the validated
// config. Transient failures on history fetches are retried with
// exponential backoff (FETCH_MAX_ATTEMPTS, FETCH_BACKOFF); access
// failures abort immediately and surface as AccessError.
package platform
