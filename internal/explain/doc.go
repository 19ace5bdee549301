// Package explain produces local explanations of individual predictions.
//
// The Explainer follows the LIME approach for tabular data: it samples
// perturbations around the training distribution, asks the model for the
// probability of the favourable class, weights every sample by its
// proximity to the explained instance and fits a weighted ridge regression
// on standardised features. The largest coefficients of that surrogate are
// the explanation; its weighted R² is the fidelity score.
package explain
