// Package traversal walks a compiled protocol graph against a model kernel
// and a guest adapter. It implements the object-stack-plus-strategy-stack
// pattern: the object stack is the cursor through the graph, the strategy
// stack is the decision-making "brain" consulted at every branch and loop
// point. A bounded pool of workers can run many passes concurrently, each
// over its own forked kernel, merging into one campaign result.
package traversal
