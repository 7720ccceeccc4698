package codec

import (
	"github.com/iov-one/cosign/crypto"
	"github.com/iov-one/cosign/errors"
)

const (
	// CredentialIDLength is the byte length of a credential registration
	// id (a compressed BLS12-381 G1 point).
	CredentialIDLength = 48

	// EncIDCredPubShareLength is the byte length of the share of the
	// encrypted credential holder id held by one anonymity revoker.
	EncIDCredPubShareLength = 96
)

// CredentialDeploymentInfo is a credential deployed to an account together
// with the proofs the node requires to accept it.
type CredentialDeploymentInfo struct {
	CredentialPublicKeys CredentialPublicKeys   `json:"credentialPublicKeys"`
	CredID               string                 `json:"credId"`
	IPIdentity           uint32                 `json:"ipIdentity"`
	RevocationThreshold  uint8                  `json:"revocationThreshold"`
	ARData               map[uint32]ChainARData `json:"arData"`
	Policy               Policy                 `json:"policy"`
	Proofs               string                 `json:"proofs"`
}

// CredentialPublicKeys are the keys a credential signs account transactions
// with.
type CredentialPublicKeys struct {
	Keys      map[uint8]crypto.VerifyKey `json:"keys"`
	Threshold uint8                      `json:"threshold"`
}

// ChainARData is the data disclosed to one anonymity revoker.
type ChainARData struct {
	EncIDCredPubShare string `json:"encIdCredPubShare"`
}

// Policy describes the validity period of a credential and the attributes
// revealed by its holder.
type Policy struct {
	ValidTo            string            `json:"validTo"`
	CreatedAt          string            `json:"createdAt"`
	RevealedAttributes map[string]string `json:"revealedAttributes"`
}

// attributeTags maps attribute names to their wire tags.
var attributeTags = map[string]uint8{
	"firstName":          0,
	"lastName":           1,
	"sex":                2,
	"dob":                3,
	"countryOfResidence": 4,
	"nationality":        5,
	"idDocType":          6,
	"idDocNo":            7,
	"idDocIssuer":        8,
	"idDocIssuedAt":      9,
	"idDocExpiresAt":     10,
	"nationalIdNo":       11,
	"taxIdNo":            12,
}

// AttributeName returns the name of an attribute tag.
func AttributeName(tag uint8) (string, bool) {
	for name, t := range attributeTags {
		if t == tag {
			return name, true
		}
	}
	return "", false
}

// EncodeCredentialDeploymentInfo returns the wire encoding of a credential.
func EncodeCredentialDeploymentInfo(cred CredentialDeploymentInfo) ([]byte, error) {
	w := NewWriter()
	WriteCredentialDeploymentInfo(w, cred)
	return w.Bytes()
}

// WriteCredentialDeploymentInfo writes a credential. The layout is:
// public keys (u8 count, u8 index, key), u8 signature threshold, credential
// id, u32 identity provider, u8 revocation threshold, anonymity revoker data
// (u16 count, u32 identity, share), policy validity dates, revealed
// attributes (u16 count, u8 tag, u8 length, UTF-8 value) and the u32 length
// prefixed proofs.
func WriteCredentialDeploymentInfo(w *Writer, cred CredentialDeploymentInfo) {
	WriteMap8(w, cred.CredentialPublicKeys.Keys, W8, WK)
	w.Word8(cred.CredentialPublicKeys.Threshold)
	w.Hex(cred.CredID, CredentialIDLength)
	w.Word32(cred.IPIdentity)
	w.Word8(cred.RevocationThreshold)
	WriteMap(w, cred.ARData, W32, func(w *Writer, ar ChainARData) {
		w.Hex(ar.EncIDCredPubShare, EncIDCredPubShareLength)
	})
	w.YearMonth(cred.Policy.ValidTo)
	w.YearMonth(cred.Policy.CreatedAt)

	revealed := make(map[uint8]string, len(cred.Policy.RevealedAttributes))
	for name, value := range cred.Policy.RevealedAttributes {
		tag, ok := attributeTags[name]
		if !ok {
			w.Fail(errors.Wrapf(errors.ErrCodec, "unknown attribute %q", name))
			return
		}
		revealed[tag] = value
	}
	WriteMap(w, revealed, W8, func(w *Writer, value string) {
		w.Length8(len(value))
		w.Raw([]byte(value))
	})

	proofs, err := parseAnyHex(cred.Proofs)
	if err != nil {
		w.Fail(err)
		return
	}
	w.Bytes32(proofs)
}

// ReadCredentialDeploymentInfo reads a credential written by
// WriteCredentialDeploymentInfo.
func ReadCredentialDeploymentInfo(r *Reader) CredentialDeploymentInfo {
	var cred CredentialDeploymentInfo
	cred.CredentialPublicKeys.Keys = ReadMap8(r, R8, RK)
	cred.CredentialPublicKeys.Threshold = r.Word8()
	cred.CredID = r.Hex(CredentialIDLength)
	cred.IPIdentity = r.Word32()
	cred.RevocationThreshold = r.Word8()
	cred.ARData = ReadMap(r, R32, func(r *Reader) ChainARData {
		return ChainARData{EncIDCredPubShare: r.Hex(EncIDCredPubShareLength)}
	})
	cred.Policy.ValidTo = r.YearMonth()
	cred.Policy.CreatedAt = r.YearMonth()

	revealed := ReadMap(r, R8, func(r *Reader) string {
		return r.utf8(r.Raw(int(r.Word8())))
	})
	if len(revealed) > 0 {
		cred.Policy.RevealedAttributes = make(map[string]string, len(revealed))
		for tag, value := range revealed {
			name, ok := AttributeName(tag)
			if !ok {
				r.Fail(errors.Wrapf(errors.ErrCodec, "unknown attribute tag %d", tag))
				break
			}
			cred.Policy.RevealedAttributes[name] = value
		}
	}
	cred.Proofs = hexString(r.Bytes32())
	return cred
}
