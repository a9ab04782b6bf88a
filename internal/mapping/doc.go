// Package mapping persists the correspondence between original values and
// their pseudonyms and owns the cipher used to protect it.
//
// A mapping table for column c is stored as the artifact
// "mapping_output_<c>.csv" with two columns, the pseudonym column
// "Index_<c>" first and the original column "<c>" second.
//
// Values are encrypted with AES-256 in ECB mode, PKCS#7 padded and base64
// encoded. ECB leaks equality of plaintexts; it is kept so that artifacts
// written by earlier tooling stay decryptable.
package mapping
