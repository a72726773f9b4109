// Package intermediate reads and writes the delimited document format
// exchanged with the NER tool.
//
// Each record becomes one block:
//
//	<FILENAME docid="STREAM_ID">
//	...cleansed text, byte for byte...</FILENAME>
//
// The open line always ends in a newline; the body is written unmodified, so
// the close tag lands on the body's last line unless the body ends in one.
package intermediate
