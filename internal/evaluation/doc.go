// Package evaluation turns the outcome of a finished practice session into a
// level decision.
//
// The Evaluator reads the learner's last few sessions from the store,
// combines their success rates into a weighted success rate (WSR), and
// advances the persisted promotion and demotion streaks. A streak that
// reaches its length moves the level one step. After a long break the level
// is frozen for a few evaluations and easier patch material is requested.
//
// All state lives in the learner_languages row, which is locked for the
// duration of an evaluation so concurrent evaluations of the same learner
// and language run one after the other.
package evaluation
