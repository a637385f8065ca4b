// Package cfg recovers structured control flow from the label graph.
//
// Build partitions labels into strongly connected components over
// basic-block-like successor edges; any component with a cycle is a loop.
// AnalyzeLoop then determines the loop's continue label and its merge
// (break) label, computing a common successor when a loop has several exits.
// Loops nested in it show up as loop groups of Loop.Inner, which partitions
// the members again without the edges back into the header.
package cfg
