// Package selection builds practice batches.
//
// ItemSelector composes a batch for an established learner from five
// categories (weak, review, new, stretch, patch). Each category is a small
// table of query stages that relax the predicate step by step until the
// category is filled; whatever is still missing is padded from the wider
// pool and, as a last resort, by repeating items already in the batch.
//
// OnboardingSelector covers a learner's first two sessions with a fixed
// composition and returns nil once the learner has a full batch of history.
//
// Both selectors are stateless: everything they need is read from the store
// on each call.
package selection
