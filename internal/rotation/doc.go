// Package rotation implements one-shot refresh-token rotation. Each refresh
// session moves ISSUED → ROTATED or ISSUED → REVOKED exactly once, enforced
// through the jti blacklist: the marker is written only after every check
// has passed, so a failed rotation mutates nothing.
//
// Two rotations racing on the same still-valid token can both pass the
// blacklist lookup before either writes its marker, briefly double-issuing
// a session. That window is an accepted deployment trade-off and is not
// serialized away here.
package rotation
