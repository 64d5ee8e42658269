// Package linkcodec builds and parses the public file paths served under
// /files/.
//
// A path is the artifact identifier followed by an underscore and the display
// name with spaces replaced by underscores, for example
// "ZvOWMhv1_My_File_Name.pdf". Identifiers have a fixed length (IDLength) and
// are generated here as well, so generation and parsing can never disagree on
// the width of the prefix.
package linkcodec
