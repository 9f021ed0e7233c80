/*
Package bfvrns is a pure Go implementation of the Brakerski/Fan-Vercauteren (BFV) homomorphic
encryption scheme over the residue number system (RNS).

The scheme lives in the bfv package: parameters and the modulus chain, batch and coefficient
encoders, public and symmetric encryption, and an evaluator for additions, BEHZ multiplications,
relinearization, slot rotations and modulus switching. The ring package provides the RNS
polynomial arithmetic, NTT and basis extensions it is built on.
*/
package bfvrns
