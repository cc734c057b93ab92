// Package table reads the delimited text tables a dataset is built from:
// key/id tables (entity2id.txt, relation2id.txt) and the id triple table
// (triple2id.txt).
//
// A line is split on tab if it contains a tab, otherwise on space if it
// contains a space. Lines with neither delimiter (for example the row-count
// header OpenKE writes on the first line) are skipped and counted as
// malformed. Tables may be compressed; Decompress picks a decoder from the
// file extension.
package table
