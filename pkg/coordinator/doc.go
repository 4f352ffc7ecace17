// Package coordinator folds raw exploration signals into adaptation
// directives on a fixed epoch boundary, with a total order given by each
// signal's Seq (assigned once, at enqueue) rather than wall-clock
// arrival — the same signal set folds to the same directive history no
// matter how traversal workers interleaved.
package coordinator
