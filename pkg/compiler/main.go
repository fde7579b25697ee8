// Package compiler provides a C-subset lexer, parser, semantic analyzer and
// code generator that targets the stackcc virtual machine.
//
// Pipeline: C source → Lex → Parse → Analyze → Generate → listing text,
// which package asm turns into a vm.Image.
package compiler
