/*
Package sigv4 computes AWS Signature Version 4 Authorization headers for the
single-shot POST requests used by the Product Advertising API.

Only the header form of the protocol is implemented, and the canonical query
string is always empty. Signing runs in four steps.

Step 1: build the canonical request `<METHOD>\n<PATH>\n\n<HEADERS>\n<SIGNED_HEADERS>\n<PAYLOAD_HASH>`.

  - `HEADERS`: every header to sign as `name:value\n`, with the name in lower
    case, the value trimmed, sorted by name.
  - `SIGNED_HEADERS`: the lower case names joined with `;`.
  - `PAYLOAD_HASH`: `hex(sha256(BODY))` over the exact bytes that will be sent.

Step 2: build the string to sign `AWS4-HMAC-SHA256\n<TIMESTAMP>\n<SCOPE>\n<hex(sha256(CANONICAL_REQUEST))>`,
where `SCOPE` is `<YYYYMMDD>/<region>/<service>/aws4_request`.

Step 3: derive the signing key and sign:

	kDate    = hmacsha256("AWS4"+Secret, YYYYMMDD)
	kRegion  = hmacsha256(kDate, Region)
	kService = hmacsha256(kRegion, Service)
	kSigning = hmacsha256(kService, "aws4_request")
	sig      = hex(hmacsha256(kSigning, StringToSign))

Step 4: emit `AWS4-HMAC-SHA256 Credential=<ACCESS_KEY>/<SCOPE>, SignedHeaders=<SIGNED_HEADERS>, Signature=<sig>`.

The signer never reads the clock: the timestamp is an input, so the same
inputs always produce the same header.
*/
package sigv4
