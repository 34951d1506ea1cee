/*
 * doc.go, part of qmmm.
 *
 * Copyright 2026 the goChem authors.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

//Package qm runs the quantum chemistry part of a QM/MM step. It implements
//communication with several QM programs (MOPAC, GAMESS, Gaussian and ORCA)
//in such a way that the calculation settings are as separated as possible
//from the choice of QM program to perform that calculation.
//
//A Dispatcher picks the program for each calculation, based on the method
//and on whether embedding point charges are present, and keeps at most one
//session open. Energies are returned in kJ/mol and gradients (not forces)
//in kJ/mol/nm, whatever the units of the program used.
package qm
