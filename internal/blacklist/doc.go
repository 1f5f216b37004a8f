// Package blacklist tracks consumed refresh-token jtis in Redis. A refresh
// session's lifecycle is tracked only negatively: absence of a marker means
// the jti is still valid, presence means it was consumed or revoked. Markers
// carry a TTL equal to the token's remaining validity, bounding store growth
// to the maximum refresh lifetime.
package blacklist
